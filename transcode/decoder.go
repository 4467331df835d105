package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/cry-sonar/logging"
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate    int           `json:"target_sample_rate"`
	FFmpegPath          string        `json:"ffmpeg_path"`           // Path to ffmpeg binary
	FFprobePath         string        `json:"ffprobe_path"`          // Path to ffprobe binary
	ProbeTimeout        time.Duration `json:"probe_timeout"`         // Timeout for ffprobe
	NoiseReductionLevel int           `json:"noise_reduction_level"` // 0-3, 0 disables afftdn
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate:    22050,
		FFmpegPath:          "ffmpeg",  // Assume in PATH
		FFprobePath:         "ffprobe", // Assume in PATH
		ProbeTimeout:        30 * time.Second,
		NoiseReductionLevel: 0,
	}
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Format     string  `json:"format"`
}

// Decoder opens audio files as ranged sources using FFmpeg
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// FFmpegSource reads arbitrary time ranges of a file by running ffmpeg with
// a seek offset, so a long recording is never decoded into memory at once.
// Output is mono float64 at the decoder's target sample rate.
type FFmpegSource struct {
	decoder  *Decoder
	path     string
	metadata *AudioMetadata
}

// Open probes the file and returns a ranged source for it
func (d *Decoder) Open(ctx context.Context, path string) (*FFmpegSource, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Open",
		"filename":  path,
	})

	metadata, err := d.probeAudioFile(ctx, path)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	return &FFmpegSource{decoder: d, path: path, metadata: metadata}, nil
}

// Metadata returns the probed properties of the underlying file
func (s *FFmpegSource) Metadata() *AudioMetadata {
	return s.metadata
}

func (s *FFmpegSource) SampleRate() int {
	return s.decoder.config.TargetSampleRate
}

func (s *FFmpegSource) Duration() float64 {
	return s.metadata.Duration
}

// ReadRange decodes [start, end) seconds of the file
func (s *FFmpegSource) ReadRange(ctx context.Context, start, end float64) ([]float64, error) {
	if end < start {
		return nil, fmt.Errorf("invalid range [%.3f, %.3f)", start, end)
	}
	if end == start {
		return []float64{}, nil
	}

	cfg := s.decoder.config
	args := []string{
		"-v", "error", // Suppress verbose output
		"-ss", strconv.FormatFloat(start, 'f', 6, 64),
		"-t", strconv.FormatFloat(end-start, 'f', 6, 64),
		"-i", s.path,
		"-map", "0:a:0",
		"-vn",         // No video
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.TargetSampleRate),
	}
	if filter := s.decoder.buildNoiseReductionFilter(); filter != "" {
		args = append(args, "-af", filter)
	}
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, cfg.FFmpegPath, args...)

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	return bytesToFloat64(output), nil
}

// buildNoiseReductionFilter maps the 0-3 level onto afftdn strength
func (d *Decoder) buildNoiseReductionFilter() string {
	switch d.config.NoiseReductionLevel {
	case 1:
		return "afftdn=nr=6"
	case 2:
		return "afftdn=nr=12"
	case 3:
		return "afftdn=nr=18"
	default:
		return ""
	}
}

func (d *Decoder) probeAudioFile(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-show_format",           // Container duration when the stream has none
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	if d.config.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.ProbeTimeout)
		defer cancel()
	}

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

type probeStream struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	CodecLongName string `json:"codec_long_name"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	Duration      string `json:"duration"`
}

type probeReport struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseFFprobeOutput reads the first audio stream of an ffprobe report.
// Missing stream durations fall back to the container duration.
func parseFFprobeOutput(report []byte) (*AudioMetadata, error) {
	var probe probeReport
	if err := json.Unmarshal(report, &probe); err != nil {
		return nil, fmt.Errorf("decode ffprobe report: %w", err)
	}

	idx := slices.IndexFunc(probe.Streams, func(s probeStream) bool {
		return s.CodecType == "audio"
	})
	if idx < 0 {
		return nil, errors.New("ffprobe report has no audio stream")
	}
	stream := probe.Streams[idx]

	if stream.Channels < 1 || stream.Channels > 8 {
		return nil, fmt.Errorf("unsupported channel count %d", stream.Channels)
	}

	meta := &AudioMetadata{
		Channels: stream.Channels,
		Codec:    stream.CodecName,
		Format:   stream.CodecLongName,
	}
	meta.SampleRate, _ = strconv.Atoi(stream.SampleRate)

	for _, raw := range []string{stream.Duration, probe.Format.Duration} {
		if d, err := strconv.ParseFloat(raw, 64); err == nil && d > 0 {
			meta.Duration = d
			break
		}
	}

	return meta, nil
}

// bytesToFloat64 decodes f64le PCM. A trailing partial sample is dropped.
func bytesToFloat64(pcm []byte) []float64 {
	samples := make([]float64, len(pcm)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(pcm[i*8:]))
	}
	return samples
}
