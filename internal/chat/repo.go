package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetConversation(ctx context.Context, id uint64) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByParticipants returns the unique conversation for an unordered user
// pair, or gorm.ErrRecordNotFound.
func (r *Repo) FindByParticipants(ctx context.Context, userA, userB uint64) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).
		Where("pair_key = ? AND deleted_at IS NULL", PairKey(userA, userB)).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversation creates the conversation row and both participant rows in
// one transaction. If the pair_key unique index rejects the insert, someone
// else created the conversation first: re-fetch and return the existing row.
// The bool reports whether this call created the row.
func (r *Repo) CreateConversation(ctx context.Context, userA, userB uint64) (*Conversation, bool, error) {
	conv := &Conversation{PairKey: PairKey(userA, userB)}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		parts := []Participant{
			{ConversationID: conv.ID, UserID: userA},
			{ConversationID: conv.ID, UserID: userB},
		}
		return tx.Create(&parts).Error
	})
	if err == nil {
		return conv, true, nil
	}

	existing, ferr := r.FindByParticipants(ctx, userA, userB)
	if ferr == nil {
		return existing, false, nil
	}
	if errors.Is(ferr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, ferr
}

func (r *Repo) IsParticipant(ctx context.Context, conversationID, userID uint64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *Repo) ListParticipants(ctx context.Context, conversationID uint64) ([]Participant, error) {
	var parts []Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("user_id ASC").
		Find(&parts).Error
	return parts, err
}

// ConversationRow is the flat scan target for the conversation list query.
type ConversationRow struct {
	ID             uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	OtherUserID    uint64
	OtherUsername  string
	OtherAvatarURL string
}

// ListUserConversations returns the conversations userID participates in,
// newest activity first, keyset-paginated on (updated_at, id). search filters
// by the other participant's name, case-insensitive substring.
func (r *Repo) ListUserConversations(ctx context.Context, userID uint64, search string, perPage int, cursor string) ([]ConversationRow, string, error) {
	q := r.db.WithContext(ctx).Table("conversations AS c").
		Select("c.id, c.created_at, c.updated_at, other.user_id AS other_user_id, u.username AS other_username, u.avatar_url AS other_avatar_url").
		Joins("JOIN conversation_participants me ON me.conversation_id = c.id AND me.user_id = ?", userID).
		Joins("JOIN conversation_participants other ON other.conversation_id = c.id AND other.user_id <> ?", userID).
		Joins("JOIN users u ON u.id = other.user_id").
		Where("c.deleted_at IS NULL")

	if search != "" {
		q = q.Where("LOWER(u.username) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if cursor != "" {
		t, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		q = q.Where("c.updated_at < ? OR (c.updated_at = ? AND c.id < ?)", t, t, id)
	}

	var rows []ConversationRow
	if err := q.Order("c.updated_at DESC, c.id DESC").
		Limit(perPage + 1).
		Scan(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > perPage {
		rows = rows[:perPage]
		last := rows[len(rows)-1]
		next = encodeCursor(last.UpdatedAt, last.ID)
	}
	return rows, next, nil
}

// LastMessages returns, per conversation, its most recent non-deleted message.
// Two queries total regardless of conversation count.
func (r *Repo) LastMessages(ctx context.Context, conversationIDs []uint64) (map[uint64]Message, error) {
	out := make(map[uint64]Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND id IN (?)",
			r.db.Model(&Message{}).
				Select("MAX(id)").
				Where("conversation_id IN ? AND deleted_at IS NULL", conversationIDs).
				Group("conversation_id"),
		).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ConversationID] = m
	}
	return out, nil
}

type UnreadRow struct {
	ConversationID uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	UnreadCount    int64
}

// UnreadCounts computes every conversation's unread count for userID in one
// aggregated query: messages from the other side with IDs above the caller's
// read marker.
func (r *Repo) UnreadCounts(ctx context.Context, userID uint64) ([]UnreadRow, error) {
	var rows []UnreadRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id AS conversation_id, c.created_at, c.updated_at, COUNT(m.id) AS unread_count
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id AND p.user_id = ?
		LEFT JOIN messages m ON m.conversation_id = c.id
			AND m.deleted_at IS NULL
			AND m.sender_id <> ?
			AND m.id > COALESCE(p.last_read_message_id, 0)
		WHERE c.deleted_at IS NULL
		GROUP BY c.id, c.created_at, c.updated_at`,
		userID, userID,
	).Scan(&rows).Error
	return rows, err
}

// GetUserInfos loads display projections for the given user IDs.
func (r *Repo) GetUserInfos(ctx context.Context, ids []uint64) (map[uint64]UserInfo, error) {
	out := make(map[uint64]UserInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID        uint64
		Username  string
		AvatarURL string
	}
	err := r.db.WithContext(ctx).Table("users").
		Select("id, username, avatar_url").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = UserInfo{ID: u.ID, Name: u.Username, AvatarURL: u.AvatarURL}
	}
	return out, nil
}

func (r *Repo) UserExists(ctx context.Context, id uint64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Table("users").Where("id = ?", id).Count(&cnt).Error
	return cnt > 0, err
}
