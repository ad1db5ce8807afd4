package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"carechat_server/models"
	apperrors "carechat_server/pkg/errors"

	"github.com/google/uuid"
)

// In-memory doubles for the storage interfaces. They mirror the DynamoDB
// layer's observable behavior: conditional no-ops, unread counter
// arithmetic, newest-first paging.

type fakeRooms struct {
	rooms       map[string]*models.ChatRoom
	memberships map[string]map[string]*models.Membership
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		rooms:       map[string]*models.ChatRoom{},
		memberships: map[string]map[string]*models.Membership{},
	}
}

func (f *fakeRooms) GetOrCreateRoom(_ context.Context, requesterID string, participantIDs []string, isGroup bool, meta *GroupMeta) (*models.ChatRoom, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var room models.ChatRoom
	if isGroup {
		room = models.ChatRoom{
			RoomID:         "group#" + uuid.New().String(),
			ParticipantIDs: participantIDs,
			IsGroup:        true,
			AdminIDs:       []string{requesterID},
			UnreadCount:    map[string]int{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if meta != nil {
			room.GroupName = meta.Name
			room.GroupDescription = meta.Description
			room.GroupPhotoURL = meta.PhotoURL
		}
	} else {
		roomID := models.DirectRoomID(participantIDs[0], participantIDs[1])
		if existing, ok := f.rooms[roomID]; ok {
			copied := *existing
			return &copied, false, nil
		}
		room = models.ChatRoom{
			RoomID:         roomID,
			ParticipantIDs: participantIDs,
			UnreadCount:    map[string]int{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	f.rooms[room.RoomID] = &room
	for _, userID := range participantIDs {
		role := models.RoleMember
		if isGroup && userID == requesterID {
			role = models.RoleOwner
		}
		if f.memberships[userID] == nil {
			f.memberships[userID] = map[string]*models.Membership{}
		}
		f.memberships[userID][room.RoomID] = &models.Membership{
			UserID:               userID,
			RoomID:               room.RoomID,
			Role:                 role,
			NotificationsEnabled: true,
			CreatedAt:            now,
		}
	}

	copied := room
	return &copied, true, nil
}

func (f *fakeRooms) GetRoom(_ context.Context, roomID string) (*models.ChatRoom, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: room %s", apperrors.ErrNotFound, roomID)
	}
	copied := *room
	return &copied, nil
}

func (f *fakeRooms) GetMembership(_ context.Context, userID, roomID string) (*models.Membership, error) {
	membership, ok := f.memberships[userID][roomID]
	if !ok {
		return nil, fmt.Errorf("%w: membership %s/%s", apperrors.ErrNotFound, userID, roomID)
	}
	copied := *membership
	return &copied, nil
}

func (f *fakeRooms) ListRoomsForUser(_ context.Context, userID string, page, limit int) ([]models.ChatRoom, int, error) {
	var rooms []models.ChatRoom
	for _, room := range f.rooms {
		if room.HasParticipant(userID) {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		left, right := rooms[i], rooms[j]
		leftAt, rightAt := left.LastMessageAt, right.LastMessageAt
		if leftAt == "" {
			leftAt = left.CreatedAt
		}
		if rightAt == "" {
			rightAt = right.CreatedAt
		}
		return leftAt > rightAt
	})

	total := len(rooms)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return rooms[start:end], total, nil
}

func (f *fakeRooms) RegisterMessage(_ context.Context, roomID, messageID, createdAt string, recipients []string) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: room %s", apperrors.ErrNotFound, roomID)
	}
	room.LastMessageID = messageID
	room.LastMessageAt = createdAt
	room.UpdatedAt = createdAt
	if room.UnreadCount == nil {
		room.UnreadCount = map[string]int{}
	}
	for _, userID := range recipients {
		room.UnreadCount[userID]++
	}
	return nil
}

func (f *fakeRooms) ResetUnread(_ context.Context, roomID, userID string) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: room %s", apperrors.ErrNotFound, roomID)
	}
	if room.UnreadCount == nil {
		room.UnreadCount = map[string]int{}
	}
	room.UnreadCount[userID] = 0
	return nil
}

func (f *fakeRooms) UpdateLastSeen(_ context.Context, userID, roomID, messageID, seenAt string) error {
	membership, ok := f.memberships[userID][roomID]
	if !ok {
		return fmt.Errorf("%w: membership %s/%s", apperrors.ErrNotFound, userID, roomID)
	}
	membership.LastSeenMessageID = messageID
	membership.LastSeenAt = seenAt
	return nil
}

func (f *fakeRooms) SetArchived(_ context.Context, roomID string, archived bool) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: room %s", apperrors.ErrNotFound, roomID)
	}
	room.Archived = archived
	return nil
}

type fakeMessages struct {
	byID   map[string]*models.Message
	byRoom map[string][]*models.Message
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{
		byID:   map[string]*models.Message{},
		byRoom: map[string][]*models.Message{},
	}
}

func cloneMessage(m *models.Message) *models.Message {
	copied := *m
	copied.ReadBy = append([]string(nil), m.ReadBy...)
	copied.Reactions = map[string]models.Reaction{}
	for userID, reaction := range m.Reactions {
		copied.Reactions[userID] = reaction
	}
	return &copied
}

func (f *fakeMessages) PutMessage(_ context.Context, message *models.Message) error {
	stored := cloneMessage(message)
	f.byID[stored.MessageID] = stored
	f.byRoom[stored.ChatRoomID] = append(f.byRoom[stored.ChatRoomID], stored)
	return nil
}

func (f *fakeMessages) GetByID(_ context.Context, messageID string) (*models.Message, error) {
	stored, ok := f.byID[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, messageID)
	}
	return cloneMessage(stored), nil
}

func (f *fakeMessages) QueryPage(_ context.Context, roomID string, page, pageSize int, before string) ([]models.Message, bool, error) {
	stored := f.byRoom[roomID]
	newestFirst := make([]*models.Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		if before != "" && stored[i].CreatedAt >= before {
			continue
		}
		newestFirst = append(newestFirst, stored[i])
	}

	start := (page - 1) * pageSize
	if start >= len(newestFirst) {
		return nil, false, nil
	}
	end := start + pageSize
	hasMore := end < len(newestFirst)
	if end > len(newestFirst) {
		end = len(newestFirst)
	}

	window := newestFirst[start:end]
	messages := make([]models.Message, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		messages = append(messages, *cloneMessage(window[i]))
	}
	return messages, hasMore, nil
}

func (f *fakeMessages) CountByRoom(_ context.Context, roomID string) (int, error) {
	return len(f.byRoom[roomID]), nil
}

func (f *fakeMessages) MarkDelivered(_ context.Context, message *models.Message) error {
	stored, ok := f.byID[message.MessageID]
	if !ok {
		return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, message.MessageID)
	}
	if stored.Status == models.StatusSent {
		stored.Status = models.StatusDelivered
	}
	return nil
}

func (f *fakeMessages) ApplyEdit(_ context.Context, message *models.Message, content, editedAt string) (*models.Message, error) {
	stored, ok := f.byID[message.MessageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, message.MessageID)
	}
	if stored.Deleted {
		return nil, fmt.Errorf("%w: message is deleted", apperrors.ErrValidation)
	}
	stored.Content = content
	stored.Edited = true
	stored.EditedAt = editedAt
	return cloneMessage(stored), nil
}

func (f *fakeMessages) ApplyDelete(_ context.Context, message *models.Message, deletedBy, deletedAt string) (*models.Message, error) {
	stored, ok := f.byID[message.MessageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, message.MessageID)
	}
	if stored.Deleted {
		return nil, fmt.Errorf("%w: message already deleted", apperrors.ErrValidation)
	}
	stored.Deleted = true
	stored.DeletedBy = deletedBy
	stored.DeletedAt = deletedAt
	return cloneMessage(stored), nil
}

func (f *fakeMessages) PutReaction(_ context.Context, message *models.Message, userID string, reaction models.Reaction) (*models.Message, error) {
	stored, ok := f.byID[message.MessageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, message.MessageID)
	}
	if stored.Deleted {
		return nil, fmt.Errorf("%w: message is deleted", apperrors.ErrValidation)
	}
	if stored.Reactions == nil {
		stored.Reactions = map[string]models.Reaction{}
	}
	stored.Reactions[userID] = reaction
	return cloneMessage(stored), nil
}

func (f *fakeMessages) DeleteReaction(_ context.Context, message *models.Message, userID string) (*models.Message, error) {
	stored, ok := f.byID[message.MessageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, message.MessageID)
	}
	if stored.Deleted {
		return nil, fmt.Errorf("%w: message is deleted", apperrors.ErrValidation)
	}
	delete(stored.Reactions, userID)
	return cloneMessage(stored), nil
}

func (f *fakeMessages) AddReader(_ context.Context, message *models.Message, userID string) (bool, error) {
	stored, ok := f.byID[message.MessageID]
	if !ok {
		return false, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, message.MessageID)
	}
	if stored.SenderID == userID || stored.ReadByUser(userID) {
		return false, nil
	}
	stored.ReadBy = append(stored.ReadBy, userID)
	stored.Status = models.StatusRead
	return true, nil
}

type fakeIdentity struct {
	users map[string]models.UserSummary
}

func newFakeIdentity(userIDs ...string) *fakeIdentity {
	f := &fakeIdentity{users: map[string]models.UserSummary{}}
	for _, userID := range userIDs {
		f.users[userID] = models.UserSummary{UserID: userID, FullName: "User " + userID}
	}
	return f
}

func (f *fakeIdentity) Exists(_ context.Context, userID string) (bool, error) {
	_, ok := f.users[userID]
	return ok, nil
}

func (f *fakeIdentity) GetSummary(_ context.Context, userID string) (*models.UserSummary, error) {
	summary, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
	}
	return &summary, nil
}

type broadcastRecord struct {
	RoomID  string
	Except  string
	Event   string
	Payload interface{}
}

// fakeBroadcast records fan-outs and reports a fixed number of reached
// connections, standing in for the socket gateway.
type fakeBroadcast struct {
	reach   int
	records []broadcastRecord
}

func (f *fakeBroadcast) BroadcastToRoomExcept(roomID, exceptUserID, event string, payload interface{}) int {
	f.records = append(f.records, broadcastRecord{RoomID: roomID, Except: exceptUserID, Event: event, Payload: payload})
	return f.reach
}

func (f *fakeBroadcast) eventsNamed(event string) []broadcastRecord {
	var matched []broadcastRecord
	for _, record := range f.records {
		if record.Event == event {
			matched = append(matched, record)
		}
	}
	return matched
}

type recordingNotifier struct {
	notified [][]string
}

func (n *recordingNotifier) NotifyNewMessage(_ context.Context, _ *models.ChatRoom, _ *models.Message, recipients []string) {
	n.notified = append(n.notified, recipients)
}

// chatFixture bundles a chat service wired entirely to in-memory doubles.
type chatFixture struct {
	chat     *ChatService
	rooms    *fakeRooms
	messages *fakeMessages
	identity *fakeIdentity
	cast     *fakeBroadcast
	notifier *recordingNotifier
}

func newChatFixture(reach int, userIDs ...string) *chatFixture {
	if len(userIDs) == 0 {
		userIDs = []string{"u1", "u2", "u3"}
	}
	rooms := newFakeRooms()
	messages := newFakeMessages()
	identity := newFakeIdentity(userIDs...)
	cast := &fakeBroadcast{reach: reach}
	notifier := &recordingNotifier{}
	reads := &ReadTracker{Rooms: rooms, Messages: messages}

	return &chatFixture{
		chat:     NewChatService(rooms, messages, reads, identity, notifier, cast),
		rooms:    rooms,
		messages: messages,
		identity: identity,
		cast:     cast,
		notifier: notifier,
	}
}

// directRoom creates (or fetches) the 1:1 room between two seeded users.
func (f *chatFixture) directRoom(ctx context.Context, a, b string) *models.ChatRoom {
	room, _, err := f.chat.CreateRoom(ctx, a, CreateRoomInput{ParticipantIDs: []string{b}})
	if err != nil {
		panic(err)
	}
	return room
}

// send posts a text message and returns it.
func (f *chatFixture) send(ctx context.Context, roomID, senderID, content string) *models.Message {
	message, err := f.chat.SendMessage(ctx, SendMessageInput{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Type:     models.MessageTypeText,
	})
	if err != nil {
		panic(err)
	}
	return message
}
