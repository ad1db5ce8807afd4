package services

import (
	"context"
	"fmt"
	"log"

	"carechat_server/models"
	apperrors "carechat_server/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"
)

// MessageService owns message records and their mutable lifecycle. Every
// mutation is a conditional single-item update so that concurrent senders,
// readers and reactors in the same room never read-modify-write.
type MessageService struct {
	Dynamo *DynamoService
}

// PutMessage stores a new message.
func (s *MessageService) PutMessage(ctx context.Context, message *models.Message) error {
	log.Printf("📩 Storing message %s in room %s", message.MessageID, message.ChatRoomID)

	if err := s.Dynamo.PutItem(ctx, models.MessagesTable, message); err != nil {
		log.Printf("❌ Failed to store message: %v", err)
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

// GetByID resolves a message by id alone via the MessageIdIndex GSI.
func (s *MessageService) GetByID(ctx context.Context, messageID string) (*models.Message, error) {
	keyCondition := "messageId = :messageId"
	expressionValues := map[string]types.AttributeValue{
		":messageId": &types.AttributeValueMemberS{Value: messageID},
	}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.MessagesTable, models.MessageIDIndex, keyCondition, expressionValues, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve message: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, messageID)
	}

	var message models.Message
	if err := attributevalue.UnmarshalMap(items[0], &message); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &message, nil
}

// QueryPage fetches one page of a room's messages. The query runs
// newest-first for pagination; the returned slice is oldest-first so the
// latest message lands at the bottom in the UI. before is an exclusive
// createdAt cursor for infinite scroll.
func (s *MessageService) QueryPage(ctx context.Context, roomID string, page, pageSize int, before string) ([]models.Message, bool, error) {
	keyCondition := "chatRoomId = :roomId"
	expressionValues := map[string]types.AttributeValue{
		":roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	if before != "" {
		keyCondition += " AND createdAt < :before"
		expressionValues[":before"] = &types.AttributeValueMemberS{Value: before}
	}

	// One extra item beyond the requested window tells us whether older
	// messages remain.
	fetch := int32(page*pageSize + 1)
	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, keyCondition, expressionValues, nil, fetch, true)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, false, fmt.Errorf("failed to parse messages: %w", err)
	}

	hasMore := len(messages) > page*pageSize
	window := lo.Subset(messages, (page-1)*pageSize, uint(pageSize))

	// Reverse the newest-first window into chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	return window, hasMore, nil
}

// CountByRoom returns the total number of messages stored for a room.
func (s *MessageService) CountByRoom(ctx context.Context, roomID string) (int, error) {
	keyCondition := "chatRoomId = :roomId"
	expressionValues := map[string]types.AttributeValue{
		":roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	return s.Dynamo.CountItems(ctx, models.MessagesTable, keyCondition, expressionValues, nil)
}

// MarkDelivered transitions sent → delivered once the message reached at
// least one online recipient. A lost race means someone else already moved
// the status on, which is fine.
func (s *MessageService) MarkDelivered(ctx context.Context, message *models.Message) error {
	_, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable,
		"SET #st = :delivered",
		s.messageKey(message),
		map[string]types.AttributeValue{
			":delivered": &types.AttributeValueMemberS{Value: models.StatusDelivered},
			":sent":      &types.AttributeValueMemberS{Value: models.StatusSent},
		},
		map[string]string{"#st": "status"},
		"#st = :sent",
	)
	if err != nil && !IsConditionalCheckFailed(err) {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return nil
}

// ApplyEdit updates the content of a message and flags it edited. The
// condition re-checks ownership and the deleted flag so a concurrent delete
// cannot slip an edit through.
func (s *MessageService) ApplyEdit(ctx context.Context, message *models.Message, content, editedAt string) (*models.Message, error) {
	attrs, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable,
		"SET content = :content, edited = :true, editedAt = :at",
		s.messageKey(message),
		map[string]types.AttributeValue{
			":content": &types.AttributeValueMemberS{Value: content},
			":true":    &types.AttributeValueMemberBOOL{Value: true},
			":at":      &types.AttributeValueMemberS{Value: editedAt},
			":uid":     &types.AttributeValueMemberS{Value: message.SenderID},
			":false":   &types.AttributeValueMemberBOOL{Value: false},
		},
		nil,
		"senderId = :uid AND deleted = :false",
	)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("%w: message is no longer editable", apperrors.ErrValidation)
		}
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	return unmarshalMessage(attrs)
}

// ApplyDelete soft-deletes a message. Content is kept in storage for audit;
// readers only ever see the redacted tombstone.
func (s *MessageService) ApplyDelete(ctx context.Context, message *models.Message, deletedBy, deletedAt string) (*models.Message, error) {
	attrs, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable,
		"SET deleted = :true, deletedAt = :at, deletedBy = :by",
		s.messageKey(message),
		map[string]types.AttributeValue{
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":at":    &types.AttributeValueMemberS{Value: deletedAt},
			":by":    &types.AttributeValueMemberS{Value: deletedBy},
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
		nil,
		"deleted = :false",
	)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("%w: message already deleted", apperrors.ErrValidation)
		}
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}
	return unmarshalMessage(attrs)
}

// PutReaction upserts one user's reaction. A second reaction from the same
// user replaces the first — map-entry semantics, last write wins.
func (s *MessageService) PutReaction(ctx context.Context, message *models.Message, userID string, reaction models.Reaction) (*models.Message, error) {
	reactionValue, err := attributevalue.Marshal(reaction)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reaction: %w", err)
	}

	attrs, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable,
		"SET reactions.#u = :r",
		s.messageKey(message),
		map[string]types.AttributeValue{
			":r":     reactionValue,
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
		map[string]string{"#u": userID},
		"deleted = :false",
	)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("%w: cannot react to a deleted message", apperrors.ErrValidation)
		}
		return nil, fmt.Errorf("failed to add reaction: %w", err)
	}
	return unmarshalMessage(attrs)
}

// DeleteReaction removes one user's reaction, if present.
func (s *MessageService) DeleteReaction(ctx context.Context, message *models.Message, userID string) (*models.Message, error) {
	attrs, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable,
		"REMOVE reactions.#u",
		s.messageKey(message),
		map[string]types.AttributeValue{
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
		map[string]string{"#u": userID},
		"deleted = :false",
	)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("%w: cannot react to a deleted message", apperrors.ErrValidation)
		}
		return nil, fmt.Errorf("failed to remove reaction: %w", err)
	}
	return unmarshalMessage(attrs)
}

// AddReader atomically adds userID to the read-receipt set and settles the
// room-wide status on read. The condition skips the sender and anyone
// already in the set, which is what makes markRead idempotent. Returns
// whether the user was newly added.
func (s *MessageService) AddReader(ctx context.Context, message *models.Message, userID string) (bool, error) {
	_, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable,
		"ADD readBy :u SET #st = :read",
		s.messageKey(message),
		map[string]types.AttributeValue{
			":u":    &types.AttributeValueMemberSS{Value: []string{userID}},
			":uid":  &types.AttributeValueMemberS{Value: userID},
			":read": &types.AttributeValueMemberS{Value: models.StatusRead},
		},
		map[string]string{"#st": "status"},
		"senderId <> :uid AND NOT contains(readBy, :uid)",
	)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark message read: %w", err)
	}
	return true, nil
}

func (s *MessageService) messageKey(message *models.Message) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"chatRoomId": &types.AttributeValueMemberS{Value: message.ChatRoomID},
		"createdAt":  &types.AttributeValueMemberS{Value: message.CreatedAt},
	}
}

func unmarshalMessage(attrs map[string]types.AttributeValue) (*models.Message, error) {
	var message models.Message
	if err := attributevalue.UnmarshalMap(attrs, &message); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &message, nil
}
