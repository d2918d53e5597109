package api

import (
	"alcyxob/coach-bot/internal/config"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges the static operations credential for a short-lived
// JWT used on the protected routes.
type AuthHandler struct {
	cfg config.JWTConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type TokenRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// IssueToken godoc
// @Summary Exchange the ops credential for a JWT
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body TokenRequest true "Operations credential"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} gin.H "Invalid credential"
// @Router /auth/token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if h.cfg.OpsToken == "" ||
		subtle.ConstantTimeCompare([]byte(req.AccessToken), []byte(h.cfg.OpsToken)) != 1 {
		abortWithError(c, http.StatusUnauthorized, "Invalid credential")
		return
	}

	token, err := issueToken(h.cfg.Secret, h.cfg.Expiration)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not issue token")
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
