package api

import (
	"alcyxob/coach-bot/internal/service"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PaymentHandler processes successful-payment callbacks from the payment
// provider.
type PaymentHandler struct {
	userService         service.UserService
	subscriptionService service.SubscriptionService
	workoutService      service.WorkoutService
	paidDuration        time.Duration
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(
	userService service.UserService,
	subscriptionService service.SubscriptionService,
	workoutService service.WorkoutService,
	paidDuration time.Duration,
) *PaymentHandler {
	return &PaymentHandler{
		userService:         userService,
		subscriptionService: subscriptionService,
		workoutService:      workoutService,
		paidDuration:        paidDuration,
	}
}

type PaymentWebhookRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	PaymentID  string `json:"payment_id" binding:"required"`
	// DurationDays overrides the configured subscription length when set.
	DurationDays int `json:"duration_days" binding:"omitempty,gt=0"`
}

type PaymentWebhookResponse struct {
	Status        string     `json:"status"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	PlanGenerated bool       `json:"planGenerated"`
}

// Webhook godoc
// @Summary Activate or extend a subscription after a successful payment
// @Description Extends from the payment moment. Generates a fresh plan only
// when the user has nothing scheduled, so a mid-cycle renewal keeps the
// current schedule.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment body PaymentWebhookRequest true "Payment notification"
// @Success 200 {object} PaymentWebhookResponse
// @Failure 404 {object} gin.H "Unknown user"
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := h.userService.GetByTelegramID(c.Request.Context(), req.TelegramID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to look up user")
		}
		return
	}

	duration := h.paidDuration
	if req.DurationDays > 0 {
		duration = time.Duration(req.DurationDays) * 24 * time.Hour
	}

	sub, err := h.subscriptionService.ActivateOrExtend(c.Request.Context(), user.ID, duration)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to activate subscription")
		return
	}
	log.Printf("INFO: payment %s activated subscription for user %s", req.PaymentID, user.ID.Hex())

	// A user with sessions still on the calendar keeps them; one without
	// gets a plan right away.
	planGenerated := false
	upcoming, err := h.workoutService.HasUpcomingSessions(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("ERROR: post-payment schedule check for user %s: %v", user.ID.Hex(), err)
	} else if !upcoming {
		if _, err := h.workoutService.GenerateAndSchedule(c.Request.Context(), user.ID); err == nil {
			planGenerated = true
		} else if !errors.Is(err, service.ErrProfileIncomplete) {
			log.Printf("WARN: post-payment plan generation for user %s: %v", user.ID.Hex(), err)
		}
	}

	c.JSON(http.StatusOK, PaymentWebhookResponse{
		Status:        string(sub.Status),
		ExpiresAt:     sub.ExpiresAt,
		PlanGenerated: planGenerated,
	})
}
