package call

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"telecare-backend/internal/domain"
	callservice "telecare-backend/internal/service/call"
	"telecare-backend/pkg/response"
)

// Handler handles call HTTP requests
type Handler struct {
	callService *callservice.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *callservice.Service) *Handler {
	return &Handler{callService: callService}
}

// CreateCallRequest represents a create call request. The receiver is
// never client-supplied; it is deduced from the conversation.
type CreateCallRequest struct {
	ConversationID int64  `json:"conversation_id" binding:"required"`
	CallType       string `json:"call_type" binding:"required,oneof=audio video"`
}

// CreateCall starts a call on a conversation, with the requester as
// caller
// POST /v1/calls
func (h *Handler) CreateCall(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	var req CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	call, err := h.callService.Create(c.Request.Context(), &domain.CallCreate{
		ConversationID: req.ConversationID,
		CallType:       domain.CallType(req.CallType),
	}, userID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, call)
}

// GetCall returns a call visible to the requester
// GET /v1/calls/:callID
func (h *Handler) GetCall(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	callID, err := strconv.ParseInt(c.Param("callID"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid call id")
		return
	}

	call, err := h.callService.Get(c.Request.Context(), callID, userID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, call)
}

// UpdateCallRequest represents a call status update
type UpdateCallRequest struct {
	Status string `json:"status" binding:"required,oneof=ongoing completed missed rejected"`
}

// UpdateCall advances a call's status. Only the caller or receiver may
// update; the end timestamp on terminal states is stamped server-side.
// PATCH /v1/calls/:callID
func (h *Handler) UpdateCall(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	callID, err := strconv.ParseInt(c.Param("callID"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid call id")
		return
	}

	var req UpdateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	call, err := h.callService.UpdateStatus(c.Request.Context(), callID, userID, domain.CallStatus(req.Status))
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, call)
}

func requesterID(c *gin.Context) (int64, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return 0, false
	}

	userID, ok := userIDVal.(int64)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return 0, false
	}

	return userID, true
}
