package api

import (
	"alcyxob/coach-bot/internal/service"
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpsHandler exposes the background sweeps for manual triggering.
type OpsHandler struct {
	workoutService      service.WorkoutService
	subscriptionService service.SubscriptionService
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(workoutService service.WorkoutService, subscriptionService service.SubscriptionService) *OpsHandler {
	return &OpsHandler{
		workoutService:      workoutService,
		subscriptionService: subscriptionService,
	}
}

// TriggerWeeklySweep godoc
// @Summary Run the weekly plan-generation sweep now
// @Tags Ops
// @Success 202 {object} gin.H "Sweep started"
// @Router /ops/sweep/weekly [post]
func (h *OpsHandler) TriggerWeeklySweep(c *gin.Context) {
	// The sweep can outlive the request; detach it.
	go h.workoutService.WeeklySweep(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"status": "weekly sweep started"})
}

// TriggerExpirySweep godoc
// @Summary Run the subscription expiry sweep now
// @Tags Ops
// @Success 200 {object} gin.H "Sweep finished"
// @Router /ops/sweep/expiry [post]
func (h *OpsHandler) TriggerExpirySweep(c *gin.Context) {
	if err := h.subscriptionService.ExpireSweep(c.Request.Context()); err != nil {
		log.Printf("ERROR: manual expiry sweep failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "Expiry sweep failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "expiry sweep finished"})
}
