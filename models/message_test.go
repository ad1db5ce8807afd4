package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMessageType(t *testing.T) {
	for _, messageType := range []string{MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio, MessageTypeVideo} {
		assert.True(t, ValidMessageType(messageType), messageType)
	}
	assert.False(t, ValidMessageType("sticker"))
	assert.False(t, ValidMessageType(""))
}

func TestReadByUser(t *testing.T) {
	message := Message{ReadBy: []string{"u1", "u2"}}
	assert.True(t, message.ReadByUser("u1"))
	assert.False(t, message.ReadByUser("u3"))
}

func TestRedactedLeavesLiveMessagesAlone(t *testing.T) {
	message := Message{
		Content:   "hello",
		Reactions: map[string]Reaction{"u2": {Emoji: "👍"}},
	}
	redacted := message.Redacted()
	assert.Equal(t, "hello", redacted.Content)
	assert.Len(t, redacted.Reactions, 1)
}

func TestRedactedStripsDeletedMessages(t *testing.T) {
	message := Message{
		MessageID: "m1",
		Content:   "sensitive",
		File:      &FileInfo{URL: "https://example.com/x"},
		Reactions: map[string]Reaction{"u2": {Emoji: "👍"}},
		ReplyTo:   "m0",
		Deleted:   true,
		DeletedBy: "u1",
	}

	redacted := message.Redacted()
	assert.True(t, redacted.Deleted)
	assert.Equal(t, "m1", redacted.MessageID)
	assert.Equal(t, "u1", redacted.DeletedBy)
	assert.Empty(t, redacted.Content)
	assert.Nil(t, redacted.File)
	assert.Empty(t, redacted.Reactions)
	assert.Empty(t, redacted.ReplyTo)

	// The original stored record keeps its content for audit.
	assert.Equal(t, "sensitive", message.Content)
}
