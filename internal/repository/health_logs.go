// internal/repository/health_logs.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawcare-back/internal/models"
	apperrors "pawcare-back/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidTransition is returned when a status update does not find the
// record in the expected prior status.
var ErrInvalidTransition = errors.New("invalid analysis status transition")

// Stats aggregates a user's health logs
type Stats struct {
	TotalLogs         int64   `json:"totalLogs"`
	PendingAnalysis   int64   `json:"pendingAnalysis"`
	CompletedAnalysis int64   `json:"completedAnalysis"`
	FailedAnalysis    int64   `json:"failedAnalysis"`
	EmergencyCases    int64   `json:"emergencyCases"`
	AvgConfidence     float64 `json:"avgConfidence"`
}

type HealthLogRepository struct {
	db *gorm.DB
}

func NewHealthLogRepository(db *gorm.DB) *HealthLogRepository {
	return &HealthLogRepository{db: db}
}

func (r *HealthLogRepository) Create(ctx context.Context, log *models.HealthLog) error {
	if log.AIAnalysis.Status == "" {
		log.AIAnalysis.Status = models.AnalysisPending
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create health log: %w", err)
	}
	return nil
}

// GetByID loads a record without an ownership check. Only the background
// task, which already owns the record, should use it.
func (r *HealthLogRepository) GetByID(ctx context.Context, id uint) (*models.HealthLog, error) {
	var log models.HealthLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("health log not found")
		}
		return nil, fmt.Errorf("failed to load health log: %w", err)
	}
	return &log, nil
}

// GetForOwner returns the record only when ownerID owns it.
func (r *HealthLogRepository) GetForOwner(ctx context.Context, ownerID, id uint) (*models.HealthLog, error) {
	var log models.HealthLog
	err := r.db.WithContext(ctx).
		Preload("Dog", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "user_id", "name", "breed", "age")
		}).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("health analysis not found")
		}
		return nil, fmt.Errorf("failed to load health log: %w", err)
	}
	return &log, nil
}

// MarkProcessing moves a pending record to processing.
func (r *HealthLogRepository) MarkProcessing(ctx context.Context, id uint) error {
	return r.transition(ctx, id, []models.AnalysisStatus{models.AnalysisPending}, map[string]interface{}{
		"ai_status": models.AnalysisProcessing,
	})
}

// Complete writes the merged results and moves a processing record to completed.
func (r *HealthLogRepository) Complete(ctx context.Context, id uint, results models.AnalysisResults, modelVersion string, processingTime time.Duration) error {
	return r.transition(ctx, id, []models.AnalysisStatus{models.AnalysisProcessing}, map[string]interface{}{
		"ai_status":          models.AnalysisCompleted,
		"ai_results":         datatypes.NewJSONType(results),
		"ai_urgency":         results.Urgency,
		"ai_confidence":      results.Confidence,
		"ai_model_version":   modelVersion,
		"ai_processing_time": processingTime.Milliseconds(),
	})
}

// Fail records the error of a record that has not reached a terminal status.
func (r *HealthLogRepository) Fail(ctx context.Context, id uint, message string) error {
	return r.transition(ctx, id, []models.AnalysisStatus{models.AnalysisPending, models.AnalysisProcessing}, map[string]interface{}{
		"ai_status": models.AnalysisFailed,
		"ai_error":  message,
	})
}

func (r *HealthLogRepository) transition(ctx context.Context, id uint, from []models.AnalysisStatus, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.HealthLog{}).
		Where("id = ? AND ai_status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update analysis status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: health log %d is not %v", ErrInvalidTransition, id, from)
	}
	return nil
}

// ListByDog returns a page of the dog's logs, newest first. File paths are not exposed.
func (r *HealthLogRepository) ListByDog(ctx context.Context, ownerID, dogID uint, status string, page, limit int) ([]models.HealthLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := r.db.WithContext(ctx).Model(&models.HealthLog{}).
		Where("dog_id = ? AND user_id = ?", dogID, ownerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count health logs: %w", err)
	}

	var logs []models.HealthLog
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch health logs: %w", err)
	}

	for i := range logs {
		for j := range logs[i].Images {
			logs[i].Images[j].Path = ""
		}
		for j := range logs[i].Audio {
			logs[i].Audio[j].Path = ""
		}
	}

	return logs, total, nil
}

// UpdateReview sets the owner-facing review status and vet notes. It never
// touches the ai_* columns.
func (r *HealthLogRepository) UpdateReview(ctx context.Context, ownerID, id uint, status string, notes *models.VetNotes) error {
	updates := map[string]interface{}{}
	if status != "" {
		updates["status"] = status
	}
	if notes != nil {
		now := time.Now()
		updates["review_reviewed"] = true
		if notes.VetName != "" {
			updates["review_vet_name"] = notes.VetName
		}
		updates["review_vet_comments"] = notes.VetComments
		updates["review_follow_up_required"] = notes.FollowUpRequired
		updates["review_reviewed_at"] = &now
	}
	if len(updates) == 0 {
		return apperrors.NewValidationError("nothing to update")
	}

	res := r.db.WithContext(ctx).Model(&models.HealthLog{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update health log: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("health log not found")
	}
	return nil
}

// Stats counts the owner's logs by analysis status and urgency.
func (r *HealthLogRepository) Stats(ctx context.Context, ownerID uint) (Stats, error) {
	var stats Stats
	err := r.db.WithContext(ctx).Model(&models.HealthLog{}).
		Where("user_id = ?", ownerID).
		Select(`COUNT(*) AS total_logs,
			COALESCE(SUM(CASE WHEN ai_status = 'pending' THEN 1 ELSE 0 END), 0) AS pending_analysis,
			COALESCE(SUM(CASE WHEN ai_status = 'completed' THEN 1 ELSE 0 END), 0) AS completed_analysis,
			COALESCE(SUM(CASE WHEN ai_status = 'failed' THEN 1 ELSE 0 END), 0) AS failed_analysis,
			COALESCE(SUM(CASE WHEN ai_urgency = 'emergency' THEN 1 ELSE 0 END), 0) AS emergency_cases,
			COALESCE(AVG(CASE WHEN ai_status = 'completed' THEN ai_confidence END), 0) AS avg_confidence`).
		Scan(&stats).Error
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate health logs: %w", err)
	}
	return stats, nil
}

// Recent returns the owner's latest logs with their dog's name and breed.
func (r *HealthLogRepository) Recent(ctx context.Context, ownerID uint, limit int) ([]models.HealthLog, error) {
	var logs []models.HealthLog
	err := r.db.WithContext(ctx).
		Preload("Dog", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "user_id", "name", "breed")
		}).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent health logs: %w", err)
	}
	return logs, nil
}
