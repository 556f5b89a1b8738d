package push

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	redisrepo "chatlink-backend/internal/repository/redis"
	"chatlink-backend/pkg/push"
	"chatlink-backend/pkg/response"
)

// Handler handles push token HTTP requests
type Handler struct {
	tokens *redisrepo.PushTokenRepository
}

// NewHandler creates a new push token handler
func NewHandler(tokens *redisrepo.PushTokenRepository) *Handler {
	return &Handler{
		tokens: tokens,
	}
}

// RegisterTokenRequest represents a device token registration
type RegisterTokenRequest struct {
	Token string `json:"token" binding:"required"`
	Type  string `json:"type" binding:"required,oneof=fcm apns"`
}

// UnregisterTokenRequest removes a device token on logout
type UnregisterTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, false
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}

// RegisterToken registers a device token for the authenticated user
// POST /v1/push/tokens
func (h *Handler) RegisterToken(c *gin.Context) {
	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	token := push.Token{
		UserID: userID,
		Type:   push.TokenType(req.Type),
		Value:  req.Token,
	}
	if err := h.tokens.Register(c.Request.Context(), token); err != nil {
		response.InternalError(c, "Failed to register push token")
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, nil, "Push token registered")
}

// UnregisterToken removes a device token for the authenticated user
// DELETE /v1/push/tokens
func (h *Handler) UnregisterToken(c *gin.Context) {
	var req UnregisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.tokens.Unregister(c.Request.Context(), userID, req.Token); err != nil {
		response.InternalError(c, "Failed to unregister push token")
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, nil, "Push token unregistered")
}
