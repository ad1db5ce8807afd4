package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"carechat_server/models"
	apperrors "carechat_server/pkg/errors"
	"carechat_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UserProfileService is the chat core's adapter onto the platform's
// identity records: participant existence, sender enrichment and the
// coarse online flag. Profile ownership lives elsewhere.
type UserProfileService struct {
	Dynamo *DynamoService
}

// GetProfile retrieves a user profile by ID
func (ups *UserProfileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}

	item, err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
	}

	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &profile, nil
}

// Exists reports whether a user id resolves to a profile.
func (ups *UserProfileService) Exists(ctx context.Context, userID string) (bool, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}

	item, err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if err != nil {
		return false, err
	}
	return len(item) > 0, nil
}

// GetSummary builds the lightweight sender enrichment attached to messages.
func (ups *UserProfileService) GetSummary(ctx context.Context, userID string) (*models.UserSummary, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}

	item, err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
	}

	return &models.UserSummary{
		UserID:    userID,
		FullName:  utils.ExtractString(item, "fullName"),
		AvatarURL: utils.ExtractFirstPhoto(item, "photos"),
		IsOnline:  utils.ExtractBool(item, "isOnline"),
	}, nil
}

// SetOnline records the coarse presence flag the realtime gateway reports.
// Presence is a transport concern; this flag is advisory, never a source of
// truth for delivery.
func (ups *UserProfileService) SetOnline(ctx context.Context, userID string, online bool) error {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	updateExpression := "SET isOnline = :online, lastActive = :at"
	expressionValues := map[string]types.AttributeValue{
		":online": &types.AttributeValueMemberBOOL{Value: online},
		":at":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}

	if _, err := ups.Dynamo.UpdateItem(ctx, models.UserProfilesTable, updateExpression, key, expressionValues, nil); err != nil {
		log.Printf("⚠️ Failed to update presence for %s: %v", userID, err)
		return err
	}
	return nil
}
