package services

import (
	"context"
	"log"

	"carechat_server/models"
)

// Notifier consumes new-message events for offline push. Delivery belongs
// to the platform's notification service; the chat core only emits.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, room *models.ChatRoom, message *models.Message, recipients []string)
}

// LogNotifier is the default Notifier: it records the event and nothing
// else. Swapped out for the real push pipeline in production wiring.
type LogNotifier struct{}

func (LogNotifier) NotifyNewMessage(_ context.Context, room *models.ChatRoom, message *models.Message, recipients []string) {
	log.Printf("🔔 New message %s in room %s for %d recipients", message.MessageID, room.RoomID, len(recipients))
}
