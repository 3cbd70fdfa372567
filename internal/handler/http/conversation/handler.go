package conversation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"telecare-backend/internal/handler/ws"
	chatservice "telecare-backend/internal/service/chat"
	storageservice "telecare-backend/internal/service/storage"
	"telecare-backend/pkg/pagination"
	"telecare-backend/pkg/response"
)

// Handler handles conversation HTTP requests
type Handler struct {
	chatService    *chatservice.Service
	storageService *storageservice.Service
	hub            *ws.Hub
}

// NewHandler creates a new conversation handler
func NewHandler(chatService *chatservice.Service, storageService *storageservice.Service, hub *ws.Hub) *Handler {
	return &Handler{
		chatService:    chatService,
		storageService: storageService,
		hub:            hub,
	}
}

// CreateConversationRequest represents a create conversation request
type CreateConversationRequest struct {
	PatientID int64 `json:"patient_id" binding:"required"`
	DoctorID  int64 `json:"doctor_id" binding:"required"`
}

// CreateConversation creates a patient/doctor conversation
// POST /v1/conversations
func (h *Handler) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	conversation, err := h.chatService.CreateConversation(c.Request.Context(), &chatservice.CreateConversationInput{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, conversation)
}

// GetConversations lists the requester's conversations
// GET /v1/conversations?page=1&limit=20
func (h *Handler) GetConversations(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	conversations, err := h.chatService.ListConversations(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, conversations)
}

// GetHistory returns the merged message and call timeline of a
// conversation, ordered by timestamp ascending
// GET /v1/conversations/:conversationID/messages
func (h *Handler) GetHistory(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	conversationID, err := strconv.ParseInt(c.Param("conversationID"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid conversation id")
		return
	}

	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	items, err := h.chatService.GetHistory(c.Request.Context(), &chatservice.GetHistoryInput{
		ConversationID: conversationID,
		RequesterID:    userID,
		Limit:          params.Limit,
		Offset:         params.Offset,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// SendMessage persists a message posted over HTTP. Files may ride
// inline as multipart parts; each is stored first, then claimed by the
// new message. The persisted message is broadcast to the conversation's
// room exactly like a WebSocket chat_message.
// POST /v1/conversations/:conversationID/messages  (multipart/form-data)
func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	conversationID, err := strconv.ParseInt(c.Param("conversationID"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid conversation id")
		return
	}

	if _, err := h.chatService.GetConversation(c.Request.Context(), conversationID, userID); err != nil {
		response.AppError(c, err)
		return
	}

	text := c.PostForm("text")

	var attachmentIDs []int64
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for _, fileHeader := range form.File["files"] {
			file, err := fileHeader.Open()
			if err != nil {
				response.ValidationError(c, "unreadable attachment: "+fileHeader.Filename)
				return
			}

			attachment, err := h.storageService.Upload(c.Request.Context(), &storageservice.UploadInput{
				FileName:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Size:        fileHeader.Size,
				Reader:      file,
			})
			file.Close()
			if err != nil {
				response.AppError(c, err)
				return
			}
			attachmentIDs = append(attachmentIDs, attachment.ID)
		}
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), &chatservice.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       userID,
		Text:           text,
		AttachmentIDs:  attachmentIDs,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	h.hub.Broadcast(ws.ConversationRoom(conversationID), ws.NewMessageBroadcast(message))

	response.Success(c, http.StatusCreated, message)
}

// requesterID pulls the authenticated user id set by the auth
// middleware
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
