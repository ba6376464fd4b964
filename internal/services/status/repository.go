package status

import (
	"context"
	"fmt"

	"statsync/internal/models"

	"gorm.io/gorm"
)

// Repository persists the singleton update status record. Every state
// machine operation is a read-modify-write through this interface; there is
// no optimistic-concurrency check, so interleaved writers are
// last-writer-wins (single-flight is assumed and enforced at the trigger
// boundary, not here).
type Repository interface {
	// Load returns the status record, creating it on first access.
	Load(ctx context.Context) (*models.UpdateStatus, error)

	// Save writes the record back.
	Save(ctx context.Context, s *models.UpdateStatus) error
}

// GormRepository stores the record in the application database.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a gorm-backed status repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Load(ctx context.Context) (*models.UpdateStatus, error) {
	var s models.UpdateStatus
	err := r.db.WithContext(ctx).
		Where("id = ?", models.UpdateStatusID).
		FirstOrCreate(&s, models.UpdateStatus{ID: models.UpdateStatusID}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load update status: %w", err)
	}
	return &s, nil
}

func (r *GormRepository) Save(ctx context.Context, s *models.UpdateStatus) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("failed to save update status: %w", err)
	}
	return nil
}
