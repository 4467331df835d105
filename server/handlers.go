package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/gorilla/mux"
)

// Handler serves the analysis endpoints
type Handler struct {
	service JobService
}

// NewHandler creates a handler
func NewHandler(service JobService) *Handler {
	return &Handler{service: service}
}

type startRequest struct {
	FileID string `json:"file_id"`
}

type startResponse struct {
	FileID string `json:"file_id"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartAnalysis claims a file and queues its analysis
func (h *Handler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: string(apperr.ErrCodeInput)})
		return
	}
	req.FileID = strings.TrimSpace(req.FileID)
	if req.FileID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file_id is required", Code: string(apperr.ErrCodeInput)})
		return
	}

	handle, err := h.service.Start(r.Context(), req.FileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startResponse{
		FileID: handle.SourceID,
		TaskID: handle.JobID,
		Status: "processing",
	})
}

// GetStatus returns the lifecycle state and latest progress of a file
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Status(r.Context(), mux.Vars(r)["file_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetResults returns the stored result document of a file
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Result(r.Context(), mux.Vars(r)["file_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError maps error codes to HTTP statuses. Internal causes are logged,
// not returned.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)

	status := http.StatusInternalServerError
	message := "internal error"
	switch code {
	case apperr.ErrCodeInput, apperr.ErrCodeConfig:
		status = http.StatusBadRequest
		message = err.Error()
	case apperr.ErrCodeNotFound:
		status = http.StatusNotFound
		message = "not found"
	case apperr.ErrCodeConflict:
		status = http.StatusConflict
		if errors.Is(err, apperr.ErrAlreadyCompleted) {
			message = apperr.ErrAlreadyCompleted.Message
		} else {
			message = apperr.ErrJobActive.Message
		}
	case apperr.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
		message = "request timed out"
	}

	if status == http.StatusInternalServerError {
		logging.WithFields(logging.Fields{
			"component": "http_server",
			"function":  "writeError",
		}).Error(err, "Request failed")
	}

	writeJSON(w, status, errorResponse{Error: message, Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
