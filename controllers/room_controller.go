package controllers

import (
	"encoding/json"
	"net/http"

	"carechat_server/middleware"
	"carechat_server/services"

	"github.com/gorilla/mux"
)

// RoomController exposes room directory operations over REST.
type RoomController struct {
	Chat ChatAPI
}

// NewRoomController initializes the room controller
func NewRoomController(chat ChatAPI) *RoomController {
	return &RoomController{Chat: chat}
}

// HandleCreateRoom - POST /api/rooms
// Idempotent for 1:1 pairs: the existing room comes back with 200, a fresh
// creation with 201.
func (c *RoomController) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ParticipantIDs   []string `json:"participantIds" validate:"required,min=1"`
		IsGroup          bool     `json:"isGroup"`
		GroupName        string   `json:"groupName,omitempty"`
		GroupDescription string   `json:"groupDescription,omitempty"`
		GroupPhotoURL    string   `json:"groupPhotoUrl,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteValidationError(w, "Invalid request body")
		return
	}
	if err := validate.Struct(request); err != nil {
		WriteValidationError(w, "Missing required field: participantIds")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	room, created, err := c.Chat.CreateRoom(r.Context(), userID, services.CreateRoomInput{
		ParticipantIDs:   request.ParticipantIDs,
		IsGroup:          request.IsGroup,
		GroupName:        request.GroupName,
		GroupDescription: request.GroupDescription,
		GroupPhotoURL:    request.GroupPhotoURL,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusOK
	message := "Room already exists"
	if created {
		status = http.StatusCreated
		message = "Room created successfully"
	}
	WriteSuccess(w, status, message, room)
}

// HandleListRooms - GET /api/rooms?page&limit
func (c *RoomController) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	rooms, total, err := c.Chat.ListRooms(r.Context(), userID, queryInt(r, "page", 1), queryInt(r, "limit", 20))
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Rooms fetched successfully", map[string]interface{}{
		"rooms": rooms,
		"total": total,
	})
}

// HandleGetRoom - GET /api/rooms/{roomId}
func (c *RoomController) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	room, err := c.Chat.GetRoomForUser(r.Context(), mux.Vars(r)["roomId"], userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Room fetched successfully", room)
}

// HandleArchiveRoom - PATCH /api/rooms/{roomId}/archive
func (c *RoomController) HandleArchiveRoom(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteValidationError(w, "Invalid request body")
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := c.Chat.ArchiveRoom(r.Context(), mux.Vars(r)["roomId"], userID, request.Archived); err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Room archive state updated", nil)
}
