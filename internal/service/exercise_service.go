package service

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/repository"
	"alcyxob/coach-bot/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// --- Error Definitions ---
var (
	ErrEmptyLibrary      = errors.New("exercise library cannot be empty")
	ErrStorageNotEnabled = errors.New("object storage is not configured")
)

const uploadURLExpiry = 15 * time.Minute

// ExerciseService manages the exercise library the generator draws from.
type ExerciseService interface {
	// Seed replaces the whole library with the given set. Names must be
	// unique; the generator references exercises by name.
	Seed(ctx context.Context, exercises []domain.Exercise) (int, error)

	// ListByEquipment returns the library filtered by equipment context.
	ListByEquipment(ctx context.Context, equipment domain.EquipmentType) ([]domain.Exercise, error)

	// MediaUploadURL returns a short-lived presigned PUT URL for uploading a
	// demo GIF under the given object key.
	MediaUploadURL(ctx context.Context, objectKey, contentType string) (string, error)
}

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	files        storage.FileStorage
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository, files storage.FileStorage) ExerciseService {
	return &exerciseService{exerciseRepo: exerciseRepo, files: files}
}

func (s *exerciseService) Seed(ctx context.Context, exercises []domain.Exercise) (int, error) {
	if len(exercises) == 0 {
		return 0, ErrEmptyLibrary
	}
	seen := make(map[string]bool, len(exercises))
	for _, ex := range exercises {
		if ex.Name == "" || ex.MuscleGroup == "" || ex.EquipmentType == "" {
			return 0, fmt.Errorf("exercise %q is missing required fields", ex.Name)
		}
		if seen[ex.Name] {
			return 0, fmt.Errorf("duplicate exercise name %q", ex.Name)
		}
		seen[ex.Name] = true
	}

	if err := s.exerciseRepo.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear exercise library: %w", err)
	}
	if err := s.exerciseRepo.CreateMany(ctx, exercises); err != nil {
		return 0, fmt.Errorf("failed to insert exercise library: %w", err)
	}
	log.Printf("INFO: exercise library reseeded with %d exercises", len(exercises))
	return len(exercises), nil
}

func (s *exerciseService) ListByEquipment(ctx context.Context, equipment domain.EquipmentType) ([]domain.Exercise, error) {
	return s.exerciseRepo.GetByEquipment(ctx, equipment)
}

func (s *exerciseService) MediaUploadURL(ctx context.Context, objectKey, contentType string) (string, error) {
	if s.files == nil {
		return "", ErrStorageNotEnabled
	}
	return s.files.GeneratePresignedUploadURL(ctx, objectKey, contentType, uploadURLExpiry)
}
