package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatlink-backend/internal/domain"
	"chatlink-backend/internal/service/auth"
	"chatlink-backend/pkg/response"
)

// Handler handles authentication HTTP requests
type Handler struct {
	authService *auth.Service
}

// NewHandler creates a new auth handler
func NewHandler(authService *auth.Service) *Handler {
	return &Handler{
		authService: authService,
	}
}

// RefreshRequest carries the refresh token for token rotation
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register creates a new user account
// POST /v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req domain.UserCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, gin.H{"user": user},
		"Registration successful. Your account is pending approval.")
}

// Login authenticates a user and issues a token pair
// POST /v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req domain.UserLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	output, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":          output.User,
		"access_token":  output.Tokens.AccessToken,
		"refresh_token": output.Tokens.RefreshToken,
	})
}

// Refresh exchanges a refresh token for a new token pair
// POST /v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	output, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":          output.User,
		"access_token":  output.Tokens.AccessToken,
		"refresh_token": output.Tokens.RefreshToken,
	})
}
