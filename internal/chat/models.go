package chat

import (
	"fmt"
	"time"
)

// Conversation is a dyadic channel between exactly two users. PairKey is the
// canonicalized "min:max" of the two participant IDs; its unique index is what
// makes concurrent get-or-create converge on a single row.
type Conversation struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PairKey   string     `gorm:"type:varchar(44);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

func (Conversation) TableName() string { return "conversations" }

// PairKey canonicalizes an unordered user pair.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Participant carries one user's membership and read marker for a
// conversation. Exactly two rows exist per conversation, created in the same
// transaction as the conversation itself.
type Participant struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID    uint64     `gorm:"not null;index:uniq_conv_user,unique,priority:1" json:"conversation_id"`
	UserID            uint64     `gorm:"not null;index:uniq_conv_user,unique,priority:2;index" json:"user_id"`
	LastReadMessageID *uint64    `json:"last_read_message_id,omitempty"`
	LastReadAt        *time.Time `json:"last_read_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (Participant) TableName() string { return "conversation_participants" }

type MessageType string

const (
	MessageText       MessageType = "text"
	MessageAttachment MessageType = "attachment"
)

// Message IDs are monotonically increasing and double as the read watermark,
// so pagination order and unread partitioning never disagree.
type Message struct {
	ID             uint64      `gorm:"primaryKey;autoIncrement;index:idx_messages_conv_id,priority:2" json:"id"`
	ConversationID uint64      `gorm:"not null;index:idx_messages_conv_id,priority:1" json:"conversation_id"`
	SenderID       uint64      `gorm:"not null;index" json:"sender_id"`
	Body           *string     `gorm:"type:text" json:"body"`
	Type           MessageType `gorm:"type:varchar(16);not null" json:"type"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	DeletedAt      *time.Time  `gorm:"index" json:"-"`

	// Loaded explicitly, never by relation magic.
	Attachments []Attachment `gorm:"-" json:"attachments"`
	Sender      *UserInfo    `gorm:"-" json:"sender,omitempty"`
}

func (Message) TableName() string { return "messages" }

// Attachment holds file metadata only; the bytes live behind the disk+path
// pair on a blob-storage collaborator.
type Attachment struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID    uint64     `gorm:"not null;index" json:"message_id"`
	OriginalName string     `gorm:"type:varchar(255);not null" json:"original_name"`
	MimeType     string     `gorm:"type:varchar(128);not null" json:"mime_type"`
	SizeBytes    int64      `gorm:"not null" json:"size_bytes"`
	Disk         string     `gorm:"type:varchar(32);not null" json:"-"`
	Path         string     `gorm:"type:varchar(512);not null" json:"-"`
	DeletedAt    *time.Time `gorm:"index" json:"-"`

	URL string `gorm:"-" json:"url"`
}

func (Attachment) TableName() string { return "message_attachments" }

// UserInfo is the projection of the external identity collaborator used in
// conversation and message payloads.
type UserInfo struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar"`
}

// ConversationDetail is the conversation payload shape: the row plus both
// participant projections.
type ConversationDetail struct {
	ID           uint64     `json:"id"`
	Participants []UserInfo `json:"participants"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ConversationListItem is one entry of a user's conversation list.
type ConversationListItem struct {
	ID          uint64          `json:"id"`
	Other       UserInfo        `json:"participant"`
	LastMessage *MessagePreview `json:"last_message,omitempty"`
	UnreadCount int64           `json:"unread_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type MessagePreview struct {
	ID        uint64      `json:"id"`
	SenderID  uint64      `json:"sender_id"`
	Body      *string     `json:"body"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
