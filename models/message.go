package models

// Message types
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeAudio = "audio"
	MessageTypeVideo = "video"
)

// Message statuses
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// FileInfo describes an uploaded attachment produced by the media service.
type FileInfo struct {
	URL       string `dynamodbav:"url" json:"url"`
	Name      string `dynamodbav:"name" json:"name"`
	SizeBytes int64  `dynamodbav:"sizeBytes" json:"sizeBytes"`
	MimeType  string `dynamodbav:"mimeType" json:"mimeType"`
}

// Reaction is a single user's reaction to a message. At most one per user;
// a second reaction from the same user replaces the first.
type Reaction struct {
	Emoji string `dynamodbav:"emoji" json:"emoji"`
	At    string `dynamodbav:"at" json:"at"`
}

// Message represents a chat message stored in DynamoDB.
type Message struct {
	ChatRoomID string              `dynamodbav:"chatRoomId" json:"chatRoomId"` // Partition Key
	CreatedAt  string              `dynamodbav:"createdAt" json:"createdAt"`   // Sort Key (RFC3339Nano)
	MessageID  string              `dynamodbav:"messageId" json:"messageId"`   // GSI MessageIdIndex
	SenderID   string              `dynamodbav:"senderId" json:"senderId"`
	Type       string              `dynamodbav:"type" json:"type"`
	Content    string              `dynamodbav:"content,omitempty" json:"content,omitempty"`
	File       *FileInfo           `dynamodbav:"fileInfo,omitempty" json:"fileInfo,omitempty"`
	Status     string              `dynamodbav:"status" json:"status"`
	ReadBy     []string            `dynamodbav:"readBy,stringset" json:"readBy"` // sender is a member at creation
	Reactions  map[string]Reaction `dynamodbav:"reactions" json:"reactions"`
	ReplyTo    string              `dynamodbav:"replyTo,omitempty" json:"replyTo,omitempty"`
	Edited     bool                `dynamodbav:"edited" json:"edited"`
	EditedAt   string              `dynamodbav:"editedAt,omitempty" json:"editedAt,omitempty"`
	Deleted    bool                `dynamodbav:"deleted" json:"deleted"`
	DeletedAt  string              `dynamodbav:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	DeletedBy  string              `dynamodbav:"deletedBy,omitempty" json:"deletedBy,omitempty"`

	// Enrichment fields, populated at read time and never stored.
	Sender       *UserSummary `dynamodbav:"-" json:"sender,omitempty"`
	ReplyPreview *Message     `dynamodbav:"-" json:"replyToMessage,omitempty"`
}

// ValidMessageType reports whether t is one of the supported message types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio, MessageTypeVideo:
		return true
	}
	return false
}

// ReadByUser reports whether userID already appears in the read-receipt set.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Redacted returns a copy safe to hand to readers. Deleted messages keep
// their stored content for audit, but readers only ever see the tombstone.
func (m Message) Redacted() Message {
	if !m.Deleted {
		return m
	}
	m.Content = ""
	m.File = nil
	m.Reactions = map[string]Reaction{}
	m.ReplyTo = ""
	m.ReplyPreview = nil
	return m
}

// MessagesTable is the DynamoDB table name for chat messages
const MessagesTable = "ChatMessages"

// MessageIDIndex is the GSI used to resolve a message by its id alone
const MessageIDIndex = "MessageIdIndex"
