package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectRoomIDOrderInsensitive(t *testing.T) {
	assert.Equal(t, DirectRoomID("alice", "bob"), DirectRoomID("bob", "alice"))
	assert.Equal(t, "direct#alice#bob", DirectRoomID("bob", "alice"))
}

func TestChatRoomMembershipHelpers(t *testing.T) {
	room := ChatRoom{
		ParticipantIDs: []string{"u1", "u2", "u3"},
		AdminIDs:       []string{"u1"},
	}

	assert.True(t, room.HasParticipant("u2"))
	assert.False(t, room.HasParticipant("stranger"))
	assert.True(t, room.IsAdmin("u1"))
	assert.False(t, room.IsAdmin("u2"))
	assert.ElementsMatch(t, []string{"u2", "u3"}, room.OtherParticipants("u1"))
}

func TestUnreadForDefaultsToZero(t *testing.T) {
	room := ChatRoom{}
	assert.Zero(t, room.UnreadFor("u1"), "nil counter map")

	room.UnreadCount = map[string]int{"u1": 4}
	assert.Equal(t, 4, room.UnreadFor("u1"))
	assert.Zero(t, room.UnreadFor("u2"), "absent key")
}
