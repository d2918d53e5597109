package api

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/service"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- Request/Response Structs ---

type SeedExercise struct {
	Name          string               `json:"name" binding:"required"`
	Description   string               `json:"description"`
	MuscleGroup   string               `json:"muscleGroup" binding:"required"`
	EquipmentType domain.EquipmentType `json:"equipmentType" binding:"required,oneof=gym bodyweight"`
	GifKey        string               `json:"gifKey"`
	Instructions  string               `json:"instructions"`
}

type SeedRequest struct {
	Exercises []SeedExercise `json:"exercises" binding:"required,dive"`
}

type UploadURLRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// Seed godoc
// @Summary Replace the exercise library
// @Tags Exercises
// @Accept json
// @Produce json
// @Param library body SeedRequest true "Full exercise library"
// @Success 200 {object} gin.H "Count of inserted exercises"
// @Router /exercises/seed [post]
func (h *ExerciseHandler) Seed(c *gin.Context) {
	var req SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	exercises := make([]domain.Exercise, 0, len(req.Exercises))
	for _, ex := range req.Exercises {
		exercises = append(exercises, domain.Exercise{
			Name:          ex.Name,
			Description:   ex.Description,
			MuscleGroup:   ex.MuscleGroup,
			EquipmentType: ex.EquipmentType,
			GifKey:        ex.GifKey,
			Instructions:  ex.Instructions,
		})
	}

	count, err := h.exerciseService.Seed(c.Request.Context(), exercises)
	if err != nil {
		if errors.Is(err, service.ErrEmptyLibrary) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"inserted": count})
}

// ListByEquipment godoc
// @Summary List the library for one equipment context
// @Tags Exercises
// @Produce json
// @Param equipment query string true "gym or bodyweight"
// @Success 200 {array} domain.Exercise
// @Router /exercises [get]
func (h *ExerciseHandler) ListByEquipment(c *gin.Context) {
	equipment := domain.EquipmentType(c.Query("equipment"))
	if equipment != domain.EquipmentGym && equipment != domain.EquipmentBodyweight {
		abortWithError(c, http.StatusBadRequest, "equipment must be 'gym' or 'bodyweight'")
		return
	}

	exercises, err := h.exerciseService.ListByEquipment(c.Request.Context(), equipment)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list exercises")
		return
	}

	c.JSON(http.StatusOK, exercises)
}

// UploadURL godoc
// @Summary Get a presigned URL for uploading a demo GIF
// @Tags Exercises
// @Accept json
// @Produce json
// @Param upload body UploadURLRequest true "Object key and content type"
// @Success 200 {object} gin.H "Presigned PUT URL"
// @Router /exercises/upload-url [post]
func (h *ExerciseHandler) UploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	url, err := h.exerciseService.MediaUploadURL(c.Request.Context(), req.ObjectKey, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrStorageNotEnabled) {
			abortWithError(c, http.StatusNotImplemented, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to generate upload URL")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"uploadUrl": url})
}
