package socket

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"sync"

	"carechat_server/middleware"
	"carechat_server/models"
	apperrors "carechat_server/pkg/errors"
	"carechat_server/services"

	socketio "github.com/googollee/go-socket.io"
)

// ChatCore is the slice of the chat service the gateway invokes. The
// gateway is a thin transport adapter: it never touches persistence.
type ChatCore interface {
	CanAccessRoom(ctx context.Context, roomID, userID string) error
	SendMessage(ctx context.Context, input services.SendMessageInput) (*models.Message, error)
	MarkRead(ctx context.Context, roomID, userID string, messageIDs []string) ([]string, error)
	EditMessage(ctx context.Context, messageID, requesterID, content string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID, requesterID string, forEveryone bool) (*models.Message, error)
	AddReaction(ctx context.Context, messageID, userID, emoji string) (*models.Message, error)
	RemoveReaction(ctx context.Context, messageID, userID string) (*models.Message, error)
}

// PresenceStore receives the coarse online flag. Presence is a transport
// concern; everything here is reconstructable after a restart.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string, online bool) error
}

// connState is the per-connection session: the authenticated user and the
// rooms this connection joined. Rooms are tracked here as well as in
// socket.io so user_offline can be announced after disconnect.
type connState struct {
	mu     sync.Mutex
	userID string
	rooms  map[string]struct{}
}

func (cs *connState) join(roomID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.rooms[roomID] = struct{}{}
}

func (cs *connState) leave(roomID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.rooms, roomID)
}

func (cs *connState) joined(roomID string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, ok := cs.rooms[roomID]
	return ok
}

func (cs *connState) joinedRooms() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	rooms := make([]string, 0, len(cs.rooms))
	for roomID := range cs.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Gateway is the Socket.IO transport adapter. It translates socket events
// into chat service calls and implements services.Broadcaster so both
// transports fan out through the same path.
type Gateway struct {
	server    *socketio.Server
	jwtSecret string
	presence  PresenceStore
	chat      ChatCore
}

// NewGateway initializes the Socket.IO server and its event handlers.
// AttachChat must be called before serving; the late binding breaks the
// construction cycle between the gateway and the chat service.
func NewGateway(jwtSecret string, presence PresenceStore) *Gateway {
	g := &Gateway{
		server:    socketio.NewServer(nil),
		jwtSecret: jwtSecret,
		presence:  presence,
	}
	g.registerHandlers()
	return g
}

// AttachChat wires the chat service the event handlers call.
func (g *Gateway) AttachChat(chat ChatCore) {
	g.chat = chat
}

// Handler exposes the socket.io endpoint for mounting on the router.
func (g *Gateway) Handler() http.Handler {
	return g.server
}

// Serve runs the socket.io event loop.
func (g *Gateway) Serve() error {
	return g.server.Serve()
}

// Close shuts the socket.io server down.
func (g *Gateway) Close() error {
	return g.server.Close()
}

func (g *Gateway) registerHandlers() {
	g.server.OnConnect("/", func(s socketio.Conn) error {
		token := handshakeToken(s.URL())
		userID, err := middleware.ParseToken(g.jwtSecret, token)
		if err != nil {
			log.Printf("❌ Socket auth failed for %s: %v", s.ID(), err)
			return apperrors.ErrUnauthorized
		}

		s.SetContext(&connState{userID: userID, rooms: map[string]struct{}{}})
		if g.presence != nil {
			g.presence.SetOnline(context.Background(), userID, true)
		}
		log.Printf("✅ Socket connected: %s (user %s)", s.ID(), userID)
		return nil
	})

	g.server.OnEvent("/", eventJoinChat, func(s socketio.Conn, payload RoomPayload) {
		state, ok := stateOf(s)
		if !ok || payload.RoomID == "" {
			return
		}
		if err := g.chat.CanAccessRoom(context.Background(), payload.RoomID, state.userID); err != nil {
			g.emitError(s, eventJoinChat, err)
			return
		}

		s.Join(payload.RoomID)
		state.join(payload.RoomID)
		log.Printf("👥 User %s joined room %s", state.userID, payload.RoomID)
		g.BroadcastToRoomExcept(payload.RoomID, state.userID, eventUserOnline, PresenceNotice{
			RoomID: payload.RoomID,
			UserID: state.userID,
		})
	})

	g.server.OnEvent("/", eventLeaveChat, func(s socketio.Conn, payload RoomPayload) {
		state, ok := stateOf(s)
		if !ok || payload.RoomID == "" {
			return
		}
		s.Leave(payload.RoomID)
		state.leave(payload.RoomID)
	})

	g.server.OnEvent("/", eventTyping, func(s socketio.Conn, payload TypingPayload) {
		state, ok := stateOf(s)
		if !ok {
			return
		}
		// Membership was checked on join; a connection that never joined
		// the room cannot spray typing noise into it.
		if !state.joined(payload.RoomID) {
			return
		}
		// Ephemeral: broadcast only, never persisted.
		g.BroadcastToRoomExcept(payload.RoomID, state.userID, eventUserTyping, TypingNotice{
			RoomID:   payload.RoomID,
			UserID:   state.userID,
			IsTyping: payload.IsTyping,
		})
	})

	g.server.OnEvent("/", eventSendMessage, func(s socketio.Conn, payload SendMessagePayload) {
		state, ok := stateOf(s)
		if !ok {
			return
		}

		input := services.SendMessageInput{
			RoomID:   payload.RoomID,
			SenderID: state.userID,
			Content:  payload.Content,
			Type:     payload.Type,
			ReplyTo:  payload.ReplyTo,
		}
		if payload.File != nil {
			input.File = &models.FileInfo{
				URL:       payload.File.URL,
				Name:      payload.File.Name,
				SizeBytes: payload.File.SizeBytes,
				MimeType:  payload.File.MimeType,
			}
		}

		// The service persists and fans out receive_message to the rest
		// of the room; the sender only gets the ack below.
		message, err := g.chat.SendMessage(context.Background(), input)
		if err != nil {
			g.emitError(s, eventSendMessage, err)
			return
		}
		s.Emit(eventMessageSent, message)
	})

	g.server.OnEvent("/", eventMarkRead, func(s socketio.Conn, payload MarkReadPayload) {
		state, ok := stateOf(s)
		if !ok {
			return
		}
		newlyRead, err := g.chat.MarkRead(context.Background(), payload.RoomID, state.userID, payload.MessageIDs)
		if err != nil {
			g.emitError(s, eventMarkRead, err)
			return
		}
		s.Emit(eventMessageRead, services.ReadNotice{
			RoomID:     payload.RoomID,
			UserID:     state.userID,
			MessageIDs: newlyRead,
		})
	})

	g.server.OnEvent("/", eventAddReaction, func(s socketio.Conn, payload ReactionPayload) {
		state, ok := stateOf(s)
		if !ok {
			return
		}
		message, err := g.chat.AddReaction(context.Background(), payload.MessageID, state.userID, payload.Emoji)
		if err != nil {
			g.emitError(s, eventAddReaction, err)
			return
		}
		s.Emit(services.EventReactionAdded, message)
	})

	g.server.OnEvent("/", eventRemoveReaction, func(s socketio.Conn, payload ReactionPayload) {
		state, ok := stateOf(s)
		if !ok {
			return
		}
		message, err := g.chat.RemoveReaction(context.Background(), payload.MessageID, state.userID)
		if err != nil {
			g.emitError(s, eventRemoveReaction, err)
			return
		}
		s.Emit(services.EventReactionRemoved, message)
	})

	g.server.OnEvent("/", eventEditMessage, func(s socketio.Conn, payload EditPayload) {
		state, ok := stateOf(s)
		if !ok {
			return
		}
		message, err := g.chat.EditMessage(context.Background(), payload.MessageID, state.userID, payload.Content)
		if err != nil {
			g.emitError(s, eventEditMessage, err)
			return
		}
		s.Emit(services.EventMessageEdited, message)
	})

	g.server.OnEvent("/", eventDeleteMessage, func(s socketio.Conn, payload DeletePayload) {
		state, ok := stateOf(s)
		if !ok {
			return
		}
		message, err := g.chat.DeleteMessage(context.Background(), payload.MessageID, state.userID, payload.ForEveryone)
		if err != nil {
			g.emitError(s, eventDeleteMessage, err)
			return
		}
		s.Emit(services.EventMessageDeleted, message)
	})

	g.server.OnError("/", func(s socketio.Conn, err error) {
		log.Printf("❌ Socket error on %s: %v", s.ID(), err)
	})

	g.server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		state, ok := stateOf(s)
		if !ok {
			return
		}
		for _, roomID := range state.joinedRooms() {
			g.BroadcastToRoomExcept(roomID, state.userID, eventUserOffline, PresenceNotice{
				RoomID: roomID,
				UserID: state.userID,
			})
		}
		if g.presence != nil {
			g.presence.SetOnline(context.Background(), state.userID, false)
		}
		log.Printf("❌ Socket disconnected: %s (user %s, %s)", s.ID(), state.userID, reason)
	})
}

// BroadcastToRoomExcept implements services.Broadcaster: emit to every
// connection subscribed to the room except the originating user, in order,
// and report how many connections were reached. Best-effort at-least-once;
// REST polling is the durable catch-up path.
func (g *Gateway) BroadcastToRoomExcept(roomID, exceptUserID, event string, payload interface{}) int {
	reached := 0
	g.server.ForEach("/", roomID, func(c socketio.Conn) {
		state, ok := stateOf(c)
		if !ok || state.userID == exceptUserID {
			return
		}
		c.Emit(event, payload)
		reached++
	})
	return reached
}

func (g *Gateway) emitError(s socketio.Conn, event string, err error) {
	log.Printf("⚠️ %s failed on %s: %v", event, s.ID(), err)
	s.Emit(eventError, ErrorNotice{Event: event, Message: apperrors.PublicMessage(err)})
}

func stateOf(c socketio.Conn) (*connState, bool) {
	state, ok := c.Context().(*connState)
	return state, ok
}

// handshakeToken pulls the auth token out of the handshake URL. Conn.URL
// returns a url.URL value, so it is bound to a parameter here before the
// pointer-receiver Query call.
func handshakeToken(u url.URL) string {
	return u.Query().Get("token")
}
