package models

import "sort"

// ChatRoom represents a durable conversation container for 2+ participants.
// Direct (1:1) rooms are deduplicated per unordered participant pair; group
// rooms are created fresh on every request.
type ChatRoom struct {
	RoomID           string         `dynamodbav:"roomId" json:"roomId"` // Partition Key
	ParticipantIDs   []string       `dynamodbav:"participantIds,stringset" json:"participantIds"`
	IsGroup          bool           `dynamodbav:"isGroup" json:"isGroup"`
	GroupName        string         `dynamodbav:"groupName,omitempty" json:"groupName,omitempty"`
	GroupDescription string         `dynamodbav:"groupDescription,omitempty" json:"groupDescription,omitempty"`
	GroupPhotoURL    string         `dynamodbav:"groupPhotoUrl,omitempty" json:"groupPhotoUrl,omitempty"`
	AdminIDs         []string       `dynamodbav:"adminIds,stringset,omitempty" json:"adminIds,omitempty"`
	LastMessageID    string         `dynamodbav:"lastMessageId,omitempty" json:"lastMessageId,omitempty"`
	LastMessageAt    string         `dynamodbav:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	UnreadCount      map[string]int `dynamodbav:"unreadCount" json:"unreadCount"` // default 0 for absent keys
	Archived         bool           `dynamodbav:"archived" json:"archived"`
	CreatedAt        string         `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt        string         `dynamodbav:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether userID belongs to the room.
func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID is a room-level admin.
func (r *ChatRoom) IsAdmin(userID string) bool {
	for _, id := range r.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// UnreadFor returns the unread counter for userID, defaulting to 0 when the
// user has no entry in the map.
func (r *ChatRoom) UnreadFor(userID string) int {
	if r.UnreadCount == nil {
		return 0
	}
	return r.UnreadCount[userID]
}

// OtherParticipants returns every participant id except userID.
func (r *ChatRoom) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(r.ParticipantIDs))
	for _, id := range r.ParticipantIDs {
		if id != userID {
			others = append(others, id)
		}
	}
	return others
}

// DirectRoomID builds the deterministic room id for a 1:1 conversation.
// The two user ids are sorted so either ordering maps to the same room,
// which makes the dedup invariant a primary-key concern at the storage layer.
func DirectRoomID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return "direct#" + pair[0] + "#" + pair[1]
}

// ChatRoomsTable is the DynamoDB table name for chat rooms
const ChatRoomsTable = "ChatRooms"
