package services

import (
	"context"
	"log"
	"time"

	"carechat_server/models"
)

// ReadTracker derives and maintains per-user unread counters and
// read-receipt sets from message activity. Counters are incremented at
// write time and reset here, so the read path never scans messages.
type ReadTracker struct {
	Rooms    RoomDirectory
	Messages MessageStore
}

// MarkRead adds userID to the read-receipt set of each listed message in
// the room. Messages authored by the user or already read are skipped, so
// repeated calls with the same ids are a no-op. When at least one message
// was newly marked, the user's unread counter resets to 0 and the
// membership read position advances to the most recent id processed.
func (t *ReadTracker) MarkRead(ctx context.Context, roomID, userID string, messageIDs []string) ([]string, error) {
	messages := make([]models.Message, 0, len(messageIDs))
	for _, id := range messageIDs {
		message, err := t.Messages.GetByID(ctx, id)
		if err != nil {
			log.Printf("⚠️ Skipping unknown message %s in mark-read: %v", id, err)
			continue
		}
		if message.ChatRoomID != roomID {
			continue
		}
		messages = append(messages, *message)
	}

	return t.MarkMessagesRead(ctx, roomID, userID, messages)
}

// MarkMessagesRead is the resolved-message variant used by the paging path,
// where reading the page counts as reading the messages.
func (t *ReadTracker) MarkMessagesRead(ctx context.Context, roomID, userID string, messages []models.Message) ([]string, error) {
	var newlyRead []string
	var newest models.Message

	for i := range messages {
		message := &messages[i]
		if message.SenderID == userID || message.ReadByUser(userID) {
			continue
		}
		added, err := t.Messages.AddReader(ctx, message, userID)
		if err != nil {
			return newlyRead, err
		}
		if !added {
			continue
		}
		newlyRead = append(newlyRead, message.MessageID)
		if message.CreatedAt > newest.CreatedAt {
			newest = *message
		}
	}

	if len(newlyRead) == 0 {
		return nil, nil
	}

	if err := t.Rooms.ResetUnread(ctx, roomID, userID); err != nil {
		return newlyRead, err
	}
	seenAt := time.Now().UTC().Format(time.RFC3339Nano)
	if err := t.Rooms.UpdateLastSeen(ctx, userID, roomID, newest.MessageID, seenAt); err != nil {
		return newlyRead, err
	}

	log.Printf("✅ User %s read %d messages in room %s", userID, len(newlyRead), roomID)
	return newlyRead, nil
}

// GetUnreadCount sums the user's unread counters across every room they
// belong to. O(rooms) on the read path, no message scans.
func (t *ReadTracker) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	rooms, _, err := t.Rooms.ListRoomsForUser(ctx, userID, 1, 1000)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range rooms {
		total += rooms[i].UnreadFor(userID)
	}
	return total, nil
}
