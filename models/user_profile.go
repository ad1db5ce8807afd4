package models

// UserProfile is the slice of the platform's user record the chat core cares
// about. Profile ownership lives with the identity service; this shape only
// backs participant lookup and coarse presence.
type UserProfile struct {
	UserID     string   `dynamodbav:"userId" json:"userId"`
	FullName   string   `dynamodbav:"fullName,omitempty" json:"fullName,omitempty"`
	EmailID    string   `dynamodbav:"emailId,omitempty" json:"emailId,omitempty"`
	Role       string   `dynamodbav:"role,omitempty" json:"role,omitempty"` // e.g. patient, doctor, admin
	Photos     []string `dynamodbav:"photos,omitempty" json:"photos,omitempty"`
	IsOnline   bool     `dynamodbav:"isOnline" json:"isOnline"`
	LastActive string   `dynamodbav:"lastActive,omitempty" json:"lastActive,omitempty"`
}

// UserSummary is the sender enrichment attached to messages.
type UserSummary struct {
	UserID    string `json:"userId"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	IsOnline  bool   `json:"isOnline"`
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "UserProfiles"
