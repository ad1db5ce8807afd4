package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"carechat_server/models"
	apperrors "carechat_server/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// GroupMeta carries the optional group fields of a room-creation request.
type GroupMeta struct {
	Name        string
	Description string
	PhotoURL    string
}

// RoomService owns chat-room identity, creation and 1:1 deduplication.
type RoomService struct {
	Dynamo *DynamoService
}

// GetOrCreateRoom returns the existing 1:1 room for the participant pair or
// creates a new room. Group rooms are always created fresh. The bool result
// reports whether a room was created.
//
// Participant ids are assumed validated by the caller (count, distinctness,
// identity resolution).
func (s *RoomService) GetOrCreateRoom(ctx context.Context, requesterID string, participantIDs []string, isGroup bool, meta *GroupMeta) (*models.ChatRoom, bool, error) {
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
		// Deterministic id makes the pair-dedup invariant a primary-key
		// concern: the conditional put below either wins or loses cleanly.
		roomID := models.DirectRoomID(participantIDs[0], participantIDs[1])
		existing, err := s.GetRoom(ctx, roomID)
		if err == nil {
			return existing, false, nil
		}
		if !isNotFound(err) {
			return nil, false, err
		}
		room = models.ChatRoom{
			RoomID:         roomID,
			ParticipantIDs: participantIDs,
			UnreadCount:    map[string]int{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	if err := s.createRoomWithMemberships(ctx, &room, requesterID, now); err != nil {
		if IsConditionalCheckFailed(err) {
			// Lost the creation race on a 1:1 room. Re-query and return
			// the winner instead of erroring.
			log.Printf("🔁 Room %s already created concurrently, returning winner", room.RoomID)
			winner, gerr := s.GetRoom(ctx, room.RoomID)
			if gerr != nil {
				return nil, false, fmt.Errorf("%w: room creation race could not be resolved", apperrors.ErrConflict)
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	log.Printf("✅ Created room %s with %d participants", room.RoomID, len(room.ParticipantIDs))
	return &room, true, nil
}

// createRoomWithMemberships writes the room plus one membership row per
// participant in a single transaction, so a room never exists without
// matching membership rows.
func (s *RoomService) createRoomWithMemberships(ctx context.Context, room *models.ChatRoom, requesterID, now string) error {
	roomItem, err := attributevalue.MarshalMap(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(models.ChatRoomsTable),
				Item:                roomItem,
				ConditionExpression: aws.String("attribute_not_exists(roomId)"),
			},
		},
	}

	for _, userID := range room.ParticipantIDs {
		role := models.RoleMember
		if room.IsGroup && userID == requesterID {
			role = models.RoleOwner
		}
		membership := models.Membership{
			UserID:               userID,
			RoomID:               room.RoomID,
			Role:                 role,
			NotificationsEnabled: true,
			CreatedAt:            now,
		}
		memberItem, err := attributevalue.MarshalMap(membership)
		if err != nil {
			return fmt.Errorf("failed to marshal membership: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(models.MembershipsTable),
				Item:      memberItem,
			},
		})
	}

	return s.Dynamo.TransactWriteItems(ctx, items)
}

// GetRoom fetches a single room by id.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	key := map[string]types.AttributeValue{
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}

	item, err := s.Dynamo.GetItem(ctx, models.ChatRoomsTable, key)
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("%w: room %s", apperrors.ErrNotFound, roomID)
	}

	var room models.ChatRoom
	if err := attributevalue.UnmarshalMap(item, &room); err != nil {
		return nil, fmt.Errorf("failed to parse room: %w", err)
	}
	return &room, nil
}

// GetMembership fetches the membership row for (userID, roomID).
func (s *RoomService) GetMembership(ctx context.Context, userID, roomID string) (*models.Membership, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}

	item, err := s.Dynamo.GetItem(ctx, models.MembershipsTable, key)
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("%w: membership for user %s in room %s", apperrors.ErrNotFound, userID, roomID)
	}

	var membership models.Membership
	if err := attributevalue.UnmarshalMap(item, &membership); err != nil {
		return nil, fmt.Errorf("failed to parse membership: %w", err)
	}
	return &membership, nil
}

// ListRoomsForUser returns one page of the user's rooms, most recently
// active first, plus the total room count.
func (s *RoomService) ListRoomsForUser(ctx context.Context, userID string, page, limit int) ([]models.ChatRoom, int, error) {
	keyCondition := "userId = :userId"
	expressionValues := map[string]types.AttributeValue{
		":userId": &types.AttributeValueMemberS{Value: userID},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.MembershipsTable, keyCondition, expressionValues, nil, 1000)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch memberships: %w", err)
	}

	var memberships []models.Membership
	if err := attributevalue.UnmarshalListOfMaps(items, &memberships); err != nil {
		return nil, 0, fmt.Errorf("failed to parse memberships: %w", err)
	}

	rooms := make([]models.ChatRoom, 0, len(memberships))
	for _, m := range memberships {
		room, err := s.GetRoom(ctx, m.RoomID)
		if err != nil {
			log.Printf("⚠️ Skipping room %s for user %s: %v", m.RoomID, userID, err)
			continue
		}
		rooms = append(rooms, *room)
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return roomActivity(rooms[i]) > roomActivity(rooms[j])
	})

	total := len(rooms)
	pageRooms := lo.Subset(rooms, (page-1)*limit, uint(limit))
	return pageRooms, total, nil
}

// RegisterMessage advances the room's last-message pointer and increments
// the unread counter of every recipient by exactly 1, in one atomic update.
func (s *RoomService) RegisterMessage(ctx context.Context, roomID, messageID, createdAt string, recipients []string) error {
	key := map[string]types.AttributeValue{
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}

	clauses := []string{"lastMessageId = :mid", "lastMessageAt = :at", "updatedAt = :at"}
	expressionValues := map[string]types.AttributeValue{
		":mid":  &types.AttributeValueMemberS{Value: messageID},
		":at":   &types.AttributeValueMemberS{Value: createdAt},
		":zero": &types.AttributeValueMemberN{Value: "0"},
		":one":  &types.AttributeValueMemberN{Value: "1"},
	}
	expressionNames := map[string]string{}

	for i, userID := range recipients {
		alias := fmt.Sprintf("#u%d", i)
		expressionNames[alias] = userID
		clauses = append(clauses, fmt.Sprintf("unreadCount.%s = if_not_exists(unreadCount.%s, :zero) + :one", alias, alias))
	}

	updateExpression := "SET " + strings.Join(clauses, ", ")
	_, err := s.Dynamo.UpdateItem(ctx, models.ChatRoomsTable, updateExpression, key, expressionValues, expressionNames)
	if err != nil {
		return fmt.Errorf("failed to register message on room %s: %w", roomID, err)
	}
	return nil
}

// ResetUnread zeroes the unread counter of one user in one room.
func (s *RoomService) ResetUnread(ctx context.Context, roomID, userID string) error {
	key := map[string]types.AttributeValue{
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	updateExpression := "SET unreadCount.#u = :zero"
	expressionValues := map[string]types.AttributeValue{
		":zero": &types.AttributeValueMemberN{Value: "0"},
	}
	expressionNames := map[string]string{"#u": userID}

	_, err := s.Dynamo.UpdateItem(ctx, models.ChatRoomsTable, updateExpression, key, expressionValues, expressionNames)
	if err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}
	return nil
}

// UpdateLastSeen advances a member's read position.
func (s *RoomService) UpdateLastSeen(ctx context.Context, userID, roomID, messageID, seenAt string) error {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	updateExpression := "SET lastSeenAt = :at, lastSeenMessageId = :mid"
	expressionValues := map[string]types.AttributeValue{
		":at":  &types.AttributeValueMemberS{Value: seenAt},
		":mid": &types.AttributeValueMemberS{Value: messageID},
	}

	_, err := s.Dynamo.UpdateItem(ctx, models.MembershipsTable, updateExpression, key, expressionValues, nil)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

// SetArchived flips the archive flag on a room.
func (s *RoomService) SetArchived(ctx context.Context, roomID string, archived bool) error {
	key := map[string]types.AttributeValue{
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	updateExpression := "SET archived = :a, updatedAt = :at"
	expressionValues := map[string]types.AttributeValue{
		":a":  &types.AttributeValueMemberBOOL{Value: archived},
		":at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}

	_, err := s.Dynamo.UpdateItem(ctx, models.ChatRoomsTable, updateExpression, key, expressionValues, nil)
	if err != nil {
		return fmt.Errorf("failed to archive room: %w", err)
	}
	return nil
}

// roomActivity is the sort key for room listings: last message wins,
// falling back to creation time for rooms with no messages yet.
func roomActivity(room models.ChatRoom) string {
	if room.LastMessageAt != "" {
		return room.LastMessageAt
	}
	return room.CreatedAt
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
