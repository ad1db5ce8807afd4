package models

// Membership roles
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// Membership is the per-user, per-room record of role and read-position
// state. Created atomically with the room, updated on every read-receipt
// operation, never hard-deleted while the room exists.
type Membership struct {
	UserID               string `dynamodbav:"userId" json:"userId"` // Partition Key
	RoomID               string `dynamodbav:"roomId" json:"roomId"` // Sort Key
	Role                 string `dynamodbav:"role" json:"role"`
	NotificationsEnabled bool   `dynamodbav:"notificationsEnabled" json:"notificationsEnabled"`
	MutedUntil           string `dynamodbav:"mutedUntil,omitempty" json:"mutedUntil,omitempty"`
	LastSeenAt           string `dynamodbav:"lastSeenAt,omitempty" json:"lastSeenAt,omitempty"`
	LastSeenMessageID    string `dynamodbav:"lastSeenMessageId,omitempty" json:"lastSeenMessageId,omitempty"`
	CreatedAt            string `dynamodbav:"createdAt" json:"createdAt"`
}

// MembershipsTable is the DynamoDB table name for room memberships.
// The (userId, roomId) key schema enforces the pair-uniqueness constraint.
const MembershipsTable = "ChatMemberships"
