package call

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatlink-backend/internal/service/call"
	"chatlink-backend/pkg/response"
)

// Handler handles call HTTP requests
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{
		callService: callService,
	}
}

// RespondRequest carries the callee's answer to a ringing call
type RespondRequest struct {
	Response string `json:"response" binding:"required,oneof=accept reject"`
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

// InitiateCall starts a new call to another user
// POST /v1/calls
func (h *Handler) InitiateCall(c *gin.Context) {
	var req call.InitiateCallInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.callService.InitiateCall(c.Request.Context(), callerID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, gin.H{"call": resp}, "Call initiated")
}

// RespondToCall accepts or rejects a ringing call
// POST /v1/calls/:id/respond
func (h *Handler) RespondToCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.callService.RespondToCall(c.Request.Context(), callID, userID, req.Response)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"call": resp}, "Call "+req.Response+"ed")
}

// EndCall terminates a call the user participates in
// POST /v1/calls/:id/end
func (h *Handler) EndCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.callService.EndCall(c.Request.Context(), callID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, gin.H{"call": resp}, "Call ended")
}

// GetCall retrieves a single call
// GET /v1/calls/:id
func (h *Handler) GetCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.callService.GetCall(c.Request.Context(), callID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"call": resp})
}

// ListCalls returns the user's call history, newest first
// GET /v1/calls?limit=&offset=
func (h *Handler) ListCalls(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	calls, err := h.callService.ListCalls(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"calls": calls,
		"count": len(calls),
	})
}
