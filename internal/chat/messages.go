package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CreateMessageWithAttachments persists the message, its attachment rows, and
// the conversation activity touch in a single transaction. A failure anywhere
// leaves no partial state behind.
func (r *Repo) CreateMessageWithAttachments(ctx context.Context, m *Message, atts []Attachment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if len(atts) > 0 {
			for i := range atts {
				atts[i].MessageID = m.ID
			}
			if err := tx.Create(&atts).Error; err != nil {
				return err
			}
		}
		return tx.Model(&Conversation{}).
			Where("id = ?", m.ConversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return err
	}
	if atts == nil {
		atts = []Attachment{}
	}
	m.Attachments = atts
	return nil
}

// PaginateMessages returns one page ordered created_at DESC, id DESC. The ID
// tie-break keeps the order deterministic when timestamps collide.
func (r *Repo) PaginateMessages(ctx context.Context, conversationID uint64, perPage int, cursor string) ([]Message, string, error) {
	q := r.db.WithContext(ctx).
		Where("conversation_id = ? AND deleted_at IS NULL", conversationID)

	if cursor != "" {
		t, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", t, t, id)
	}

	var msgs []Message
	if err := q.Order("created_at DESC, id DESC").
		Limit(perPage + 1).
		Find(&msgs).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(msgs) > perPage {
		msgs = msgs[:perPage]
		last := msgs[len(msgs)-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}

	if err := r.loadAttachments(ctx, msgs); err != nil {
		return nil, "", err
	}
	return msgs, next, nil
}

func (r *Repo) loadAttachments(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(msgs))
	for i := range msgs {
		msgs[i].Attachments = []Attachment{}
		ids = append(ids, msgs[i].ID)
	}
	var atts []Attachment
	if err := r.db.WithContext(ctx).
		Where("message_id IN ? AND deleted_at IS NULL", ids).
		Order("id ASC").
		Find(&atts).Error; err != nil {
		return err
	}
	byMsg := make(map[uint64][]Attachment, len(msgs))
	for _, a := range atts {
		byMsg[a.MessageID] = append(byMsg[a.MessageID], a)
	}
	for i := range msgs {
		if list, ok := byMsg[msgs[i].ID]; ok {
			msgs[i].Attachments = list
		}
	}
	return nil
}

// LatestMessageID returns max(id) over non-deleted messages, 0 when the
// conversation is empty.
func (r *Repo) LatestMessageID(ctx context.Context, conversationID uint64) (uint64, error) {
	var row struct{ MaxID *uint64 }
	err := r.db.WithContext(ctx).Model(&Message{}).
		Select("MAX(id) AS max_id").
		Where("conversation_id = ? AND deleted_at IS NULL", conversationID).
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.MaxID == nil {
		return 0, nil
	}
	return *row.MaxID, nil
}

// MessageBelongs reports whether messageID is a message of conversationID.
func (r *Repo) MessageBelongs(ctx context.Context, conversationID, messageID uint64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND conversation_id = ?", messageID, conversationID).
		Count(&cnt).Error
	return cnt > 0, err
}
