package api

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/service"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserHandler holds the user service dependency.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// --- Request/Response Structs ---

type RegisterUserRequest struct {
	TelegramID      int64                     `json:"telegramId" binding:"required"`
	Username        string                    `json:"username"`
	Gender          domain.Gender             `json:"gender" binding:"omitempty,oneof=male female"`
	Age             int                       `json:"age" binding:"omitempty,gt=0"`
	HeightCm        int                       `json:"heightCm" binding:"omitempty,gt=0"`
	CurrentWeight   float64                   `json:"currentWeight" binding:"omitempty,gt=0"`
	TargetWeight    float64                   `json:"targetWeight" binding:"omitempty,gt=0"`
	Goal            domain.Goal               `json:"goal" binding:"required,oneof=mass_gain weight_loss maintenance"`
	FitnessLevel    domain.FitnessLevel       `json:"fitnessLevel" binding:"required,oneof=beginner intermediate advanced"`
	WeeklyFrequency int                       `json:"weeklyFrequency" binding:"required,min=1,max=7"`
	EquipmentType   domain.EquipmentType      `json:"equipmentType" binding:"required,oneof=gym bodyweight"`
	Availability    []domain.AvailabilitySlot `json:"availability"`
}

// UserResponse converts ObjectIDs to strings for the wire.
type UserResponse struct {
	ID                  string                    `json:"id"`
	TelegramID          int64                     `json:"telegramId"`
	Username            string                    `json:"username,omitempty"`
	Goal                domain.Goal               `json:"goal,omitempty"`
	FitnessLevel        domain.FitnessLevel       `json:"fitnessLevel,omitempty"`
	WeeklyFrequency     int                       `json:"weeklyFrequency,omitempty"`
	CurrentTrainingWeek *int                      `json:"currentTrainingWeek,omitempty"`
	EquipmentType       domain.EquipmentType      `json:"equipmentType,omitempty"`
	Availability        []domain.AvailabilitySlot `json:"availability,omitempty"`
	CreatedAt           time.Time                 `json:"createdAt"`
}

// Register godoc
// @Summary Register a new user with their training profile
// @Tags Users
// @Accept json
// @Produce json
// @Param user body RegisterUserRequest true "Training profile"
// @Success 201 {object} UserResponse
// @Failure 409 {object} gin.H "User already exists"
// @Router /users [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	for _, slot := range req.Availability {
		if slot.Day < time.Sunday || slot.Day > time.Saturday ||
			slot.Hour < 0 || slot.Hour > 23 || slot.Minute < 0 || slot.Minute > 59 {
			abortWithError(c, http.StatusBadRequest, "Invalid availability slot")
			return
		}
	}

	user := &domain.User{
		TelegramID:      req.TelegramID,
		Username:        req.Username,
		Gender:          req.Gender,
		Age:             req.Age,
		HeightCm:        req.HeightCm,
		CurrentWeight:   req.CurrentWeight,
		TargetWeight:    req.TargetWeight,
		Goal:            req.Goal,
		FitnessLevel:    req.FitnessLevel,
		WeeklyFrequency: req.WeeklyFrequency,
		EquipmentType:   req.EquipmentType,
		Availability:    req.Availability,
	}

	created, err := h.userService.Register(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during registration")
		}
		return
	}

	c.JSON(http.StatusCreated, MapUserToResponse(created))
}

// GetUser godoc
// @Summary Fetch a user by ID
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} gin.H "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:                  user.ID.Hex(),
		TelegramID:          user.TelegramID,
		Username:            user.Username,
		Goal:                user.Goal,
		FitnessLevel:        user.FitnessLevel,
		WeeklyFrequency:     user.WeeklyFrequency,
		CurrentTrainingWeek: user.CurrentTrainingWeek,
		EquipmentType:       user.EquipmentType,
		Availability:        user.Availability,
		CreatedAt:           user.CreatedAt,
	}
}
