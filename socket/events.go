package socket

// Client → server events. Server → client counterparts live in the chat
// service (fan-out events) or below (connection-scoped events).
const (
	eventJoinChat       = "join_chat"
	eventLeaveChat      = "leave_chat"
	eventTyping         = "typing"
	eventSendMessage    = "send_message"
	eventMarkRead       = "mark_read"
	eventAddReaction    = "add_reaction"
	eventRemoveReaction = "remove_reaction"
	eventEditMessage    = "edit_message"
	eventDeleteMessage  = "delete_message"
)

// Server → client connection-scoped events.
const (
	eventMessageSent = "message_sent"
	eventMessageRead = "message_read"
	eventUserTyping  = "user_typing"
	eventUserOnline  = "user_online"
	eventUserOffline = "user_offline"
	eventError       = "error"
)

// RoomPayload targets a single room.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// TypingPayload is the ephemeral typing signal; never persisted.
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// TypingNotice is the broadcast counterpart of TypingPayload.
type TypingNotice struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// SendMessagePayload mirrors the REST send request.
type SendMessagePayload struct {
	RoomID  string       `json:"roomId"`
	Content string       `json:"content"`
	Type    string       `json:"type"`
	File    *filePayload `json:"fileInfo,omitempty"`
	ReplyTo string       `json:"replyTo,omitempty"`
}

type filePayload struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	MimeType  string `json:"mimeType"`
}

// MarkReadPayload lists the messages a reader observed.
type MarkReadPayload struct {
	RoomID     string   `json:"roomId"`
	MessageIDs []string `json:"messageIds"`
}

// ReactionPayload adds or removes a reaction.
type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji,omitempty"`
}

// EditPayload edits a message's content.
type EditPayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// DeletePayload soft-deletes a message.
type DeletePayload struct {
	MessageID   string `json:"messageId"`
	ForEveryone bool   `json:"forEveryone"`
}

// PresenceNotice announces a user coming or going in a room.
type PresenceNotice struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// ErrorNotice is emitted to the originating connection when an operation
// fails; the connection itself stays up and the client re-issues the action.
type ErrorNotice struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
