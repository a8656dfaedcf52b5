package chat

import "context"

// MessageCreatedEvent is published after a send commits so downstream
// consumers (notification fan-out) can react. Delivery is best-effort; the
// send itself never depends on the broker.
type MessageCreatedEvent struct {
	EventID        string `json:"event_id"`
	ConversationID uint64 `json:"conversation_id"`
	MessageID      uint64 `json:"message_id"`
	SenderID       uint64 `json:"sender_id"`
	RecipientID    uint64 `json:"recipient_id"`
}

type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, ev MessageCreatedEvent) error
}
