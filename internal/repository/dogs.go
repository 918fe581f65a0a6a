// internal/repository/dogs.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"pawcare-back/internal/models"
	apperrors "pawcare-back/pkg/errors"

	"gorm.io/gorm"
)

type DogRepository struct {
	db *gorm.DB
}

func NewDogRepository(db *gorm.DB) *DogRepository {
	return &DogRepository{db: db}
}

// FindOwned returns the dog only when it belongs to ownerID.
func (r *DogRepository) FindOwned(ctx context.Context, ownerID, dogID uint) (*models.Dog, error) {
	var dog models.Dog
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", dogID, ownerID).First(&dog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("dog not found or access denied")
		}
		return nil, fmt.Errorf("failed to load dog: %w", err)
	}
	return &dog, nil
}

// ListByOwner returns the owner's dogs without their medical sub-records.
func (r *DogRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Dog, error) {
	var dogs []models.Dog
	err := r.db.WithContext(ctx).
		Omit("medical_history", "vaccinations", "medications").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&dogs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dogs: %w", err)
	}
	return dogs, nil
}

func (r *DogRepository) Create(ctx context.Context, dog *models.Dog) error {
	if err := r.db.WithContext(ctx).Create(dog).Error; err != nil {
		return fmt.Errorf("failed to create dog: %w", err)
	}
	return nil
}

func (r *DogRepository) Save(ctx context.Context, dog *models.Dog) error {
	if err := r.db.WithContext(ctx).Save(dog).Error; err != nil {
		return fmt.Errorf("failed to save dog: %w", err)
	}
	return nil
}

// Delete removes the dog together with all of its health logs.
func (r *DogRepository) Delete(ctx context.Context, dog *models.Dog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dog_id = ?", dog.ID).Delete(&models.HealthLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete health logs: %w", err)
		}
		if err := tx.Delete(dog).Error; err != nil {
			return fmt.Errorf("failed to delete dog: %w", err)
		}
		return nil
	})
}
