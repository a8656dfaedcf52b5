package chat

import (
	"context"
	"time"
)

func (r *Repo) GetParticipant(ctx context.Context, conversationID, userID uint64) (*Participant, error) {
	var p Participant
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateReadMarker advances the watermark with a single-row atomic UPDATE.
// That is the only concurrency control read-state needs: message IDs are
// assigned before they can be referenced here, so any concurrently inserted
// message with a higher ID stays unread no matter how the calls interleave.
func (r *Repo) UpdateReadMarker(ctx context.Context, conversationID, userID, messageID uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]any{
			"last_read_message_id": messageID,
			"last_read_at":         time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UnreadCount is computed fresh from the watermark on every call; a stale
// cached value under concurrent sends is exactly what this avoids.
func (r *Repo) UnreadCount(ctx context.Context, conversationID, userID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(m.id)
		FROM messages m
		JOIN conversation_participants p ON p.conversation_id = m.conversation_id AND p.user_id = ?
		WHERE m.conversation_id = ?
			AND m.deleted_at IS NULL
			AND m.sender_id <> ?
			AND m.id > COALESCE(p.last_read_message_id, 0)`,
		userID, conversationID, userID,
	).Scan(&n).Error
	return n, err
}
