package api

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/service"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler holds the workout service dependency.
type PlanHandler struct {
	workoutService service.WorkoutService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(workoutService service.WorkoutService) *PlanHandler {
	return &PlanHandler{workoutService: workoutService}
}

// --- Request/Response Structs ---

type SessionSummary struct {
	ID        string               `json:"id"`
	PlannedAt time.Time            `json:"plannedAt"`
	Status    domain.SessionStatus `json:"status"`
	Focus     string               `json:"focus"`
	Exercises int                  `json:"exercises"`
}

type PlanResponse struct {
	Periodization string           `json:"periodization"`
	Split         string           `json:"split"`
	PrimaryGoal   string           `json:"primaryGoal"`
	NextSession   time.Time        `json:"nextSession"`
	Sessions      []SessionSummary `json:"sessions"`
}

// RequestPlan godoc
// @Summary Generate and schedule the next training week for a user
// @Description Manual trigger; subject to the plan-request cooldown.
// @Tags Plans
// @Produce json
// @Param id path string true "User ID"
// @Success 201 {object} PlanResponse
// @Failure 402 {object} gin.H "No active trial or subscription"
// @Failure 404 {object} gin.H "User not found"
// @Failure 429 {object} gin.H "Cooldown active"
// @Router /users/{id}/plan [post]
func (h *PlanHandler) RequestPlan(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	result, err := h.workoutService.RequestPlan(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrProfileIncomplete):
			abortWithError(c, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrEntitlementRequired):
			abortWithError(c, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, service.ErrCooldownActive):
			abortWithError(c, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, service.ErrNoExercises), errors.Is(err, service.ErrNoPlanProduced):
			abortWithError(c, http.StatusBadGateway, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate plan")
		}
		return
	}

	c.JSON(http.StatusCreated, MapResultToResponse(result))
}

// CompleteSession godoc
// @Summary Mark a delivered session as completed
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} gin.H "Session not found"
// @Failure 409 {object} gin.H "Session is not in a completable state"
// @Router /sessions/{id}/complete [post]
func (h *PlanHandler) CompleteSession(c *gin.Context) {
	h.transitionSession(c, h.workoutService.CompleteSession)
}

// SkipSession godoc
// @Summary Mark a session as skipped
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} gin.H "Session not found"
// @Failure 409 {object} gin.H "Session is already finished"
// @Router /sessions/{id}/skip [post]
func (h *PlanHandler) SkipSession(c *gin.Context) {
	h.transitionSession(c, h.workoutService.SkipSession)
}

func (h *PlanHandler) transitionSession(c *gin.Context, transition func(ctx context.Context, id primitive.ObjectID) error) {
	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	if err := transition(c.Request.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidTransition):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update session")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// MapResultToResponse converts a generation result to its DTO.
func MapResultToResponse(result *service.GenerationResult) PlanResponse {
	resp := PlanResponse{
		Periodization: result.Summary.Periodization,
		Split:         result.Summary.Split,
		PrimaryGoal:   result.Summary.PrimaryGoal,
		NextSession:   result.NextSession,
		Sessions:      make([]SessionSummary, 0, len(result.Sessions)),
	}
	for _, s := range result.Sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			ID:        s.ID.Hex(),
			PlannedAt: s.PlannedAt,
			Status:    s.Status,
			Focus:     s.Focus,
			Exercises: len(s.Exercises),
		})
	}
	return resp
}
