package socket

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeToken(t *testing.T) {
	parsed, err := url.Parse("http://localhost:8080/socket.io/?EIO=4&transport=polling&token=abc123")
	require.NoError(t, err)

	// Conn.URL hands the handshake URL over by value; the extraction must
	// work on that value, not a pointer.
	assert.Equal(t, "abc123", handshakeToken(*parsed))

	bare, err := url.Parse("http://localhost:8080/socket.io/?EIO=4&transport=polling")
	require.NoError(t, err)
	assert.Empty(t, handshakeToken(*bare))
}

func TestConnStateRoomTracking(t *testing.T) {
	state := &connState{userID: "u1", rooms: map[string]struct{}{}}

	assert.False(t, state.joined("r1"), "typing and presence stay silent before join")

	state.join("r1")
	state.join("r2")
	assert.True(t, state.joined("r1"))
	assert.ElementsMatch(t, []string{"r1", "r2"}, state.joinedRooms())

	state.leave("r1")
	assert.False(t, state.joined("r1"))
	assert.Equal(t, []string{"r2"}, state.joinedRooms())
}
