package store

import (
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
)

// AudioFile is the audio_files row
type AudioFile struct {
	ID        string  `gorm:"primaryKey;size:64"`
	Filename  string  `gorm:"size:255;not null"`
	Path      string  `gorm:"size:1024;not null"`
	Status    string  `gorm:"size:20;not null;index;default:uploaded"`
	JobID     string  `gorm:"size:64"`
	Duration  float64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name
func (AudioFile) TableName() string {
	return "audio_files"
}

// AnalysisResultRecord is the analysis_results row, one per audio file
type AnalysisResultRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	AudioFileID string    `gorm:"size:64;not null;uniqueIndex"`
	ResultData  []byte    `gorm:"type:json;not null"`
	AnalyzedAt  time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (AnalysisResultRecord) TableName() string {
	return "analysis_results"
}

func (f *AudioFile) toAnalysis() *analysis.AudioFile {
	return &analysis.AudioFile{
		ID:        f.ID,
		Filename:  f.Filename,
		Path:      f.Path,
		Status:    analysis.Status(f.Status),
		JobID:     f.JobID,
		Duration:  f.Duration,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func fromAnalysis(f *analysis.AudioFile) *AudioFile {
	return &AudioFile{
		ID:        f.ID,
		Filename:  f.Filename,
		Path:      f.Path,
		Status:    string(f.Status),
		JobID:     f.JobID,
		Duration:  f.Duration,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
