package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/apperr"
	"github.com/RyanBlaney/cry-sonar/logging"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// MySQLConfig holds the database connection parameters
type MySQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns the go-sql-driver data source name
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// GormStore persists sources and results in MySQL
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// OpenMySQL connects to MySQL and configures the connection pool
func OpenMySQL(cfg MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates the tables
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&AudioFile{}, &AnalysisResultRecord{}); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	return nil
}

// Ping checks the connection
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Register inserts a new source in the uploaded state
func (s *GormStore) Register(ctx context.Context, file *analysis.AudioFile) error {
	row := fromAnalysis(file)
	row.Status = string(analysis.StatusUploaded)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("register audio file %s: %w", file.ID, err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, sourceID string) (*analysis.AudioFile, error) {
	var row AudioFile
	if err := s.db.WithContext(ctx).First(&row, "id = ?", sourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("get audio file %s: %w", sourceID, err)
	}
	return row.toAnalysis(), nil
}

// Claim moves the source to processing with a conditional update, so two
// concurrent claims cannot both succeed
func (s *GormStore) Claim(ctx context.Context, sourceID, jobID string) (*analysis.AudioFile, error) {
	var claimed *analysis.AudioFile

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row AudioFile
		if err := tx.First(&row, "id = ?", sourceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}

		if err := claimable(analysis.Status(row.Status)); err != nil {
			return err
		}

		res := tx.Model(&AudioFile{}).
			Where("id = ? AND status IN ?", sourceID, []string{string(analysis.StatusUploaded), string(analysis.StatusFailed)}).
			Updates(map[string]any{
				"status": string(analysis.StatusProcessing),
				"job_id": jobID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrJobActive
		}

		row.Status = string(analysis.StatusProcessing)
		row.JobID = jobID
		claimed = row.toAnalysis()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (s *GormStore) SetStatus(ctx context.Context, sourceID string, status analysis.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	res := s.db.WithContext(ctx).Model(&AudioFile{}).Where("id = ?", sourceID).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("set status of %s: %w", sourceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SaveResult inserts the result and marks the source completed in one
// transaction
func (s *GormStore) SaveResult(ctx context.Context, sourceID string, result *analysis.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	record := &AnalysisResultRecord{
		AudioFileID: sourceID,
		ResultData:  data,
		AnalyzedAt:  result.AnalyzedAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "audio_file_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"result_data", "analyzed_at"}),
		}).Create(record).Error; err != nil {
			return err
		}

		res := tx.Model(&AudioFile{}).Where("id = ?", sourceID).Update("status", string(analysis.StatusCompleted))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save result of %s: %w", sourceID, err)
	}

	logging.WithFields(logging.Fields{
		"component": "gorm_store",
		"function":  "SaveResult",
		"source_id": sourceID,
	}).Debug("Result saved", logging.Fields{"bytes": len(data)})

	return nil
}

func (s *GormStore) LoadResult(ctx context.Context, sourceID string) (*analysis.AnalysisResult, error) {
	var record AnalysisResultRecord
	if err := s.db.WithContext(ctx).First(&record, "audio_file_id = ?", sourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("load result of %s: %w", sourceID, err)
	}

	var result analysis.AnalysisResult
	if err := json.Unmarshal(record.ResultData, &result); err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", sourceID, err)
	}
	return &result, nil
}

// claimable maps the current status to the claim rejection, if any
func claimable(status analysis.Status) error {
	switch status {
	case analysis.StatusProcessing:
		return apperr.ErrJobActive
	case analysis.StatusCompleted:
		return apperr.ErrAlreadyCompleted
	}
	if !status.CanTransitionTo(analysis.StatusProcessing) {
		return fmt.Errorf("source in status %q cannot be analyzed", status)
	}
	return nil
}
