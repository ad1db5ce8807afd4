package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"carechat_server/models"
	apperrors "carechat_server/pkg/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Events broadcast to a room's subscribers on every successful mutation.
// Both transports converge here: a REST write fans out to sockets exactly
// like a socket write does.
const (
	EventReceiveMessage  = "receive_message"
	EventMessageEdited   = "message_edited"
	EventMessageDeleted  = "message_deleted"
	EventReactionAdded   = "reaction_added"
	EventReactionRemoved = "reaction_removed"
	EventReadUpdate      = "message_read_update"
)

// RoomDirectory owns chat-room identity, creation and 1:1 dedup.
type RoomDirectory interface {
	GetOrCreateRoom(ctx context.Context, requesterID string, participantIDs []string, isGroup bool, meta *GroupMeta) (*models.ChatRoom, bool, error)
	GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error)
	GetMembership(ctx context.Context, userID, roomID string) (*models.Membership, error)
	ListRoomsForUser(ctx context.Context, userID string, page, limit int) ([]models.ChatRoom, int, error)
	RegisterMessage(ctx context.Context, roomID, messageID, createdAt string, recipients []string) error
	ResetUnread(ctx context.Context, roomID, userID string) error
	UpdateLastSeen(ctx context.Context, userID, roomID, messageID, seenAt string) error
	SetArchived(ctx context.Context, roomID string, archived bool) error
}

// MessageStore owns message records and their mutable lifecycle.
type MessageStore interface {
	PutMessage(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, messageID string) (*models.Message, error)
	QueryPage(ctx context.Context, roomID string, page, pageSize int, before string) ([]models.Message, bool, error)
	CountByRoom(ctx context.Context, roomID string) (int, error)
	MarkDelivered(ctx context.Context, message *models.Message) error
	ApplyEdit(ctx context.Context, message *models.Message, content, editedAt string) (*models.Message, error)
	ApplyDelete(ctx context.Context, message *models.Message, deletedBy, deletedAt string) (*models.Message, error)
	PutReaction(ctx context.Context, message *models.Message, userID string, reaction models.Reaction) (*models.Message, error)
	DeleteReaction(ctx context.Context, message *models.Message, userID string) (*models.Message, error)
	AddReader(ctx context.Context, message *models.Message, userID string) (bool, error)
}

// IdentityProvider resolves participant ids and sender enrichment.
type IdentityProvider interface {
	Exists(ctx context.Context, userID string) (bool, error)
	GetSummary(ctx context.Context, userID string) (*models.UserSummary, error)
}

// Broadcaster fans a room delta out to every subscribed connection except
// the originator, in message order. Returns how many connections were
// reached.
type Broadcaster interface {
	BroadcastToRoomExcept(roomID, exceptUserID, event string, payload interface{}) int
}

// ChatService is the single synchronous entry point used by both the REST
// façade and the realtime gateway. Transports never touch persistence.
type ChatService struct {
	Rooms     RoomDirectory
	Messages  MessageStore
	Reads     *ReadTracker
	Identity  IdentityProvider
	Notifier  Notifier
	Broadcast Broadcaster
}

// NewChatService wires the orchestrator. Notifier and Broadcaster may be
// nil in reduced deployments; every use is guarded.
func NewChatService(rooms RoomDirectory, messages MessageStore, reads *ReadTracker, identity IdentityProvider, notifier Notifier, broadcast Broadcaster) *ChatService {
	return &ChatService{
		Rooms:     rooms,
		Messages:  messages,
		Reads:     reads,
		Identity:  identity,
		Notifier:  notifier,
		Broadcast: broadcast,
	}
}

// CreateRoomInput is a room-creation request from either transport.
type CreateRoomInput struct {
	ParticipantIDs   []string
	IsGroup          bool
	GroupName        string
	GroupDescription string
	GroupPhotoURL    string
}

// SendMessageInput is a message send from either transport.
type SendMessageInput struct {
	RoomID   string
	SenderID string
	Content  string
	Type     string
	File     *models.FileInfo
	ReplyTo  string
}

// MessagePage is one page of room history, oldest-first.
type MessagePage struct {
	Messages []models.Message `json:"messages"`
	Total    int              `json:"total"`
	HasMore  bool             `json:"hasMore"`
}

// CreateRoom validates the participant set against the identity service and
// delegates to the room directory. Calling it twice for the same 1:1 pair
// returns the same room both times.
func (s *ChatService) CreateRoom(ctx context.Context, requesterID string, input CreateRoomInput) (*models.ChatRoom, bool, error) {
	participants := lo.Uniq(append([]string{requesterID}, input.ParticipantIDs...))

	if !input.IsGroup && len(participants) != 2 {
		return nil, false, fmt.Errorf("%w: a direct room requires exactly 2 distinct participants", apperrors.ErrValidation)
	}
	if input.IsGroup && len(participants) < 2 {
		return nil, false, fmt.Errorf("%w: a group room requires at least 2 participants", apperrors.ErrValidation)
	}

	for _, userID := range participants {
		ok, err := s.Identity.Exists(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, fmt.Errorf("%w: participant %s", apperrors.ErrNotFound, userID)
		}
	}

	var meta *GroupMeta
	if input.IsGroup {
		meta = &GroupMeta{
			Name:        input.GroupName,
			Description: input.GroupDescription,
			PhotoURL:    input.GroupPhotoURL,
		}
	}

	return s.Rooms.GetOrCreateRoom(ctx, requesterID, participants, input.IsGroup, meta)
}

// GetRoomForUser fetches a room after verifying membership.
func (s *ChatService) GetRoomForUser(ctx context.Context, roomID, userID string) (*models.ChatRoom, error) {
	room, err := s.Rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this room", apperrors.ErrForbidden)
	}
	return room, nil
}

// CanAccessRoom is the membership gate used by the realtime gateway on join.
func (s *ChatService) CanAccessRoom(ctx context.Context, roomID, userID string) error {
	_, err := s.GetRoomForUser(ctx, roomID, userID)
	return err
}

// ListRooms returns one page of the caller's rooms, most recently active first.
func (s *ChatService) ListRooms(ctx context.Context, userID string, page, limit int) ([]models.ChatRoom, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Rooms.ListRoomsForUser(ctx, userID, page, limit)
}

// ArchiveRoom flips the archive flag. Group rooms restrict this to admins.
func (s *ChatService) ArchiveRoom(ctx context.Context, roomID, userID string, archived bool) error {
	room, err := s.GetRoomForUser(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if room.IsGroup && !room.IsAdmin(userID) {
		return fmt.Errorf("%w: only a group admin can archive the room", apperrors.ErrForbidden)
	}
	return s.Rooms.SetArchived(ctx, roomID, archived)
}

// SendMessage persists a message, bumps the room's last-message pointer and
// unread counters, enriches the result and fans it out. The sender's copy
// keeps status "sent"; the broadcast copy carries "delivered".
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*models.Message, error) {
	room, err := s.Rooms.GetRoom(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(input.SenderID) {
		return nil, fmt.Errorf("%w: sender is not a participant of this room", apperrors.ErrForbidden)
	}
	if !models.ValidMessageType(input.Type) {
		return nil, fmt.Errorf("%w: unknown message type %q", apperrors.ErrValidation, input.Type)
	}
	if input.Type == models.MessageTypeText && input.Content == "" {
		return nil, fmt.Errorf("%w: content is required for text messages", apperrors.ErrValidation)
	}

	var replyPreview *models.Message
	if input.ReplyTo != "" {
		target, err := s.Messages.GetByID(ctx, input.ReplyTo)
		if err != nil {
			return nil, err
		}
		if target.ChatRoomID != input.RoomID {
			return nil, fmt.Errorf("%w: reply target belongs to another room", apperrors.ErrValidation)
		}
		preview := target.Redacted()
		replyPreview = &preview
	}

	message := &models.Message{
		ChatRoomID: input.RoomID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		MessageID:  uuid.New().String(),
		SenderID:   input.SenderID,
		Type:       input.Type,
		Content:    input.Content,
		File:       input.File,
		Status:     models.StatusSent,
		ReadBy:     []string{input.SenderID},
		Reactions:  map[string]models.Reaction{},
		ReplyTo:    input.ReplyTo,
	}

	if err := s.Messages.PutMessage(ctx, message); err != nil {
		return nil, err
	}

	recipients := room.OtherParticipants(input.SenderID)
	if err := s.Rooms.RegisterMessage(ctx, room.RoomID, message.MessageID, message.CreatedAt, recipients); err != nil {
		return nil, err
	}

	s.enrichSender(ctx, message)
	message.ReplyPreview = replyPreview

	if s.Broadcast != nil {
		delivered := *message
		delivered.Status = models.StatusDelivered
		reached := s.Broadcast.BroadcastToRoomExcept(room.RoomID, input.SenderID, EventReceiveMessage, delivered)
		if reached > 0 {
			if err := s.Messages.MarkDelivered(ctx, message); err != nil {
				log.Printf("⚠️ Could not mark message %s delivered: %v", message.MessageID, err)
			}
		}
	}

	if s.Notifier != nil {
		s.Notifier.NotifyNewMessage(ctx, room, message, recipients)
	}

	return message, nil
}

// GetMessages returns one page of room history, oldest-first. Reading the
// page counts as reading the messages: every returned message not authored
// by the requester is marked read before the page is returned. This side
// effect is part of the contract, not an implementation detail.
func (s *ChatService) GetMessages(ctx context.Context, roomID, requesterID string, page, pageSize int, before string) (*MessagePage, error) {
	if _, err := s.GetRoomForUser(ctx, roomID, requesterID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	messages, hasMore, err := s.Messages.QueryPage(ctx, roomID, page, pageSize, before)
	if err != nil {
		return nil, err
	}
	total, err := s.Messages.CountByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	newlyRead, err := s.Reads.MarkMessagesRead(ctx, roomID, requesterID, messages)
	if err != nil {
		log.Printf("⚠️ Read-by-paging failed for user %s in room %s: %v", requesterID, roomID, err)
	}
	if len(newlyRead) > 0 && s.Broadcast != nil {
		s.Broadcast.BroadcastToRoomExcept(roomID, requesterID, EventReadUpdate, ReadNotice{
			RoomID:     roomID,
			UserID:     requesterID,
			MessageIDs: newlyRead,
		})
	}

	senders := map[string]*models.UserSummary{}
	for i := range messages {
		messages[i] = messages[i].Redacted()
		if summary, ok := senders[messages[i].SenderID]; ok {
			messages[i].Sender = summary
			continue
		}
		s.enrichSender(ctx, &messages[i])
		senders[messages[i].SenderID] = messages[i].Sender
	}

	return &MessagePage{Messages: messages, Total: total, HasMore: hasMore}, nil
}

// EditMessage updates content. Only the original sender may edit, and a
// deleted message can never be edited again.
func (s *ChatService) EditMessage(ctx context.Context, messageID, requesterID, content string) (*models.Message, error) {
	message, err := s.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.Deleted {
		return nil, fmt.Errorf("%w: cannot edit a deleted message", apperrors.ErrValidation)
	}
	if message.SenderID != requesterID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", apperrors.ErrForbidden)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", apperrors.ErrValidation)
	}

	updated, err := s.Messages.ApplyEdit(ctx, message, content, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}

	s.enrichSender(ctx, updated)
	if s.Broadcast != nil {
		s.Broadcast.BroadcastToRoomExcept(updated.ChatRoomID, requesterID, EventMessageEdited, *updated)
	}
	return updated, nil
}

// DeleteMessage soft-deletes. The sender may always delete their own
// message; deleting for everyone as a non-sender requires group admin
// rights. Per-user "hide for me only" deletion is intentionally not a
// thing: a non-sender non-admin is rejected regardless of forEveryone.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, requesterID string, forEveryone bool) (*models.Message, error) {
	message, err := s.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.Deleted {
		return nil, fmt.Errorf("%w: message already deleted", apperrors.ErrValidation)
	}

	if message.SenderID != requesterID {
		room, err := s.Rooms.GetRoom(ctx, message.ChatRoomID)
		if err != nil {
			return nil, err
		}
		if !(forEveryone && room.IsGroup && room.IsAdmin(requesterID)) {
			return nil, fmt.Errorf("%w: cannot delete another participant's message", apperrors.ErrForbidden)
		}
	}

	deleted, err := s.Messages.ApplyDelete(ctx, message, requesterID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}

	tombstone := deleted.Redacted()
	if s.Broadcast != nil {
		s.Broadcast.BroadcastToRoomExcept(deleted.ChatRoomID, requesterID, EventMessageDeleted, DeleteNotice{
			RoomID:    deleted.ChatRoomID,
			MessageID: deleted.MessageID,
			DeletedBy: requesterID,
			DeletedAt: deleted.DeletedAt,
		})
	}
	return &tombstone, nil
}

// AddReaction upserts the caller's reaction on a message. A second call
// replaces the prior reaction, never duplicates it.
func (s *ChatService) AddReaction(ctx context.Context, messageID, userID, emoji string) (*models.Message, error) {
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", apperrors.ErrValidation)
	}
	message, err := s.reactableMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	reaction := models.Reaction{Emoji: emoji, At: time.Now().UTC().Format(time.RFC3339Nano)}
	updated, err := s.Messages.PutReaction(ctx, message, userID, reaction)
	if err != nil {
		return nil, err
	}

	s.enrichSender(ctx, updated)
	if s.Broadcast != nil {
		s.Broadcast.BroadcastToRoomExcept(updated.ChatRoomID, userID, EventReactionAdded, *updated)
	}
	return updated, nil
}

// RemoveReaction drops the caller's reaction, if any.
func (s *ChatService) RemoveReaction(ctx context.Context, messageID, userID string) (*models.Message, error) {
	message, err := s.reactableMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	updated, err := s.Messages.DeleteReaction(ctx, message, userID)
	if err != nil {
		return nil, err
	}

	s.enrichSender(ctx, updated)
	if s.Broadcast != nil {
		s.Broadcast.BroadcastToRoomExcept(updated.ChatRoomID, userID, EventReactionRemoved, *updated)
	}
	return updated, nil
}

// MarkRead records explicit read receipts and resets the caller's unread
// counter. Idempotent: re-reading already-read ids is a no-op.
func (s *ChatService) MarkRead(ctx context.Context, roomID, userID string, messageIDs []string) ([]string, error) {
	if _, err := s.GetRoomForUser(ctx, roomID, userID); err != nil {
		return nil, err
	}

	newlyRead, err := s.Reads.MarkRead(ctx, roomID, userID, messageIDs)
	if err != nil {
		return nil, err
	}

	if len(newlyRead) > 0 && s.Broadcast != nil {
		s.Broadcast.BroadcastToRoomExcept(roomID, userID, EventReadUpdate, ReadNotice{
			RoomID:     roomID,
			UserID:     userID,
			MessageIDs: newlyRead,
		})
	}
	return newlyRead, nil
}

// GetUnreadCount sums the caller's unread counters across all their rooms.
func (s *ChatService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.Reads.GetUnreadCount(ctx, userID)
}

// ReadNotice is the fan-out payload for read-receipt updates.
type ReadNotice struct {
	RoomID     string   `json:"roomId"`
	UserID     string   `json:"userId"`
	MessageIDs []string `json:"messageIds"`
}

// DeleteNotice is the fan-out payload for soft deletions.
type DeleteNotice struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	DeletedBy string `json:"deletedBy"`
	DeletedAt string `json:"deletedAt"`
}

// reactableMessage loads a message and checks the caller may react to it.
func (s *ChatService) reactableMessage(ctx context.Context, messageID, userID string) (*models.Message, error) {
	message, err := s.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.Deleted {
		return nil, fmt.Errorf("%w: cannot react to a deleted message", apperrors.ErrValidation)
	}
	room, err := s.Rooms.GetRoom(ctx, message.ChatRoomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this room", apperrors.ErrForbidden)
	}
	return message, nil
}

// enrichSender attaches the sender profile summary. Identity lookups are
// best-effort on the read path: a missing profile never blocks a message.
func (s *ChatService) enrichSender(ctx context.Context, message *models.Message) {
	if s.Identity == nil {
		return
	}
	summary, err := s.Identity.GetSummary(ctx, message.SenderID)
	if err != nil {
		log.Printf("⚠️ Could not enrich sender %s: %v", message.SenderID, err)
		return
	}
	message.Sender = summary
}
