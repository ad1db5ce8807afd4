package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"carechat_server/middleware"
	"carechat_server/models"
	"carechat_server/services"

	"github.com/gorilla/mux"
)

// ChatAPI is the slice of the chat service the REST façade calls.
type ChatAPI interface {
	CreateRoom(ctx context.Context, requesterID string, input services.CreateRoomInput) (*models.ChatRoom, bool, error)
	GetRoomForUser(ctx context.Context, roomID, userID string) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, userID string, page, limit int) ([]models.ChatRoom, int, error)
	ArchiveRoom(ctx context.Context, roomID, userID string, archived bool) error
	SendMessage(ctx context.Context, input services.SendMessageInput) (*models.Message, error)
	GetMessages(ctx context.Context, roomID, requesterID string, page, pageSize int, before string) (*services.MessagePage, error)
	EditMessage(ctx context.Context, messageID, requesterID, content string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID, requesterID string, forEveryone bool) (*models.Message, error)
	AddReaction(ctx context.Context, messageID, userID, emoji string) (*models.Message, error)
	RemoveReaction(ctx context.Context, messageID, userID string) (*models.Message, error)
	MarkRead(ctx context.Context, roomID, userID string, messageIDs []string) ([]string, error)
	GetUnreadCount(ctx context.Context, userID string) (int, error)
}

// ChatController exposes message operations over REST.
type ChatController struct {
	Chat ChatAPI
}

// NewChatController initializes the chat controller
func NewChatController(chat ChatAPI) *ChatController {
	return &ChatController{Chat: chat}
}

// HandleSendMessage - POST /api/messages
func (c *ChatController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		RoomID  string           `json:"roomId" validate:"required"`
		Content string           `json:"content"`
		Type    string           `json:"type" validate:"required"`
		File    *models.FileInfo `json:"fileInfo,omitempty"`
		ReplyTo string           `json:"replyTo,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteValidationError(w, "Invalid request body")
		return
	}
	if err := validate.Struct(request); err != nil {
		WriteValidationError(w, "Missing required fields: roomId or type")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	message, err := c.Chat.SendMessage(r.Context(), services.SendMessageInput{
		RoomID:   request.RoomID,
		SenderID: userID,
		Content:  request.Content,
		Type:     request.Type,
		File:     request.File,
		ReplyTo:  request.ReplyTo,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, "Message sent successfully", message)
}

// HandleGetMessages - GET /api/rooms/{roomId}/messages?page&limit&before
// Fetching a page marks its messages as read for the caller.
func (c *ChatController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	before := r.URL.Query().Get("before")

	userID, _ := middleware.UserIDFromContext(r.Context())
	result, err := c.Chat.GetMessages(r.Context(), roomID, userID, page, limit, before)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Messages fetched successfully", result)
}

// HandleEditMessage - PUT /api/messages/{messageId}
func (c *ChatController) HandleEditMessage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Content string `json:"content" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteValidationError(w, "Invalid request body")
		return
	}
	if err := validate.Struct(request); err != nil {
		WriteValidationError(w, "Missing required field: content")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	message, err := c.Chat.EditMessage(r.Context(), mux.Vars(r)["messageId"], userID, request.Content)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Message edited successfully", message)
}

// HandleDeleteMessage - DELETE /api/messages/{messageId}?deleteForEveryone=bool
func (c *ChatController) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	forEveryone := r.URL.Query().Get("deleteForEveryone") == "true"

	userID, _ := middleware.UserIDFromContext(r.Context())
	message, err := c.Chat.DeleteMessage(r.Context(), mux.Vars(r)["messageId"], userID, forEveryone)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Message deleted successfully", message)
}

// HandleMarkRead - POST /api/rooms/{roomId}/read
func (c *ChatController) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MessageIDs []string `json:"messageIds" validate:"required,min=1"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteValidationError(w, "Invalid request body")
		return
	}
	if err := validate.Struct(request); err != nil {
		WriteValidationError(w, "Missing required field: messageIds")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	newlyRead, err := c.Chat.MarkRead(r.Context(), mux.Vars(r)["roomId"], userID, request.MessageIDs)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Messages marked as read", map[string]interface{}{
		"readMessageIds": newlyRead,
	})
}

// HandleAddReaction - POST /api/messages/{messageId}/reactions
func (c *ChatController) HandleAddReaction(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Emoji string `json:"emoji" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteValidationError(w, "Invalid request body")
		return
	}
	if err := validate.Struct(request); err != nil {
		WriteValidationError(w, "Missing required field: emoji")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	message, err := c.Chat.AddReaction(r.Context(), mux.Vars(r)["messageId"], userID, request.Emoji)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Reaction added", message)
}

// HandleRemoveReaction - DELETE /api/messages/{messageId}/reactions
func (c *ChatController) HandleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	message, err := c.Chat.RemoveReaction(r.Context(), mux.Vars(r)["messageId"], userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Reaction removed", message)
}

// HandleUnreadCount - GET /api/unread-count
func (c *ChatController) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	count, err := c.Chat.GetUnreadCount(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Unread count fetched", map[string]int{"unreadCount": count})
}

// queryInt parses a positive integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
