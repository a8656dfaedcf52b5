package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gopherchat/gopherchat/internal/common"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 50
	maxPerPage     = 100
)

// Service is the only component that knows the authorization rules; the Repo
// underneath is pure persistence.
type Service struct {
	repo   *Repo
	limits AttachmentLimits
	disk   string
	blobs  BlobStore
	events EventPublisher // optional
}

func NewService(repo *Repo, limits AttachmentLimits, disk string, blobs BlobStore, events EventPublisher) *Service {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 10
	}
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = 10 << 20
	}
	return &Service{repo: repo, limits: limits, disk: disk, blobs: blobs, events: events}
}

func clampPerPage(n int) int {
	if n <= 0 || n > maxPerPage {
		return defaultPerPage
	}
	return n
}

// requireParticipant resolves the conversation and rejects callers that do
// not belong to it. Every conversation-scoped operation goes through here.
func (s *Service) requireParticipant(ctx context.Context, conversationID, userID uint64) (*Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	isMember, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, forbidden("you are not a participant in this conversation")
	}
	return conv, nil
}

// GetOrCreateConversation returns the single conversation for the unordered
// pair, creating it on first use. Safe to call any number of times in either
// argument order; concurrent callers converge on one row via the pair_key
// unique index.
func (s *Service) GetOrCreateConversation(ctx context.Context, userID, otherUserID uint64) (*ConversationDetail, error) {
	if userID == otherUserID {
		return nil, forbidden("cannot start a conversation with yourself")
	}

	exists, err := s.repo.UserExists(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, invalid("user_id", "user %d does not exist", otherUserID)
	}

	conv, err := s.repo.FindByParticipants(ctx, userID, otherUserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		conv, _, err = s.repo.CreateConversation(ctx, userID, otherUserID)
		if err != nil {
			return nil, err
		}
	}
	return s.conversationDetail(ctx, conv)
}

func (s *Service) conversationDetail(ctx context.Context, conv *Conversation) (*ConversationDetail, error) {
	parts, err := s.repo.ListParticipants(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.UserID)
	}
	infos, err := s.repo.GetUserInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	detail := &ConversationDetail{
		ID:           conv.ID,
		Participants: make([]UserInfo, 0, len(parts)),
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
	for _, p := range parts {
		detail.Participants = append(detail.Participants, infos[p.UserID])
	}
	return detail, nil
}

// SendMessage persists one message with its attachments. Participant-only:
// this check runs on every send, it is the system's core authorization
// invariant. There is deliberately no cap on how many messages a participant
// may send.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID uint64, body string, files []FileUpload) (*Message, error) {
	if _, err := s.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" && len(files) == 0 {
		return nil, invalid("body", "either body or files is required")
	}
	if err := validateUploads(files, s.limits); err != nil {
		return nil, err
	}
	if len(files) > 0 && s.blobs == nil {
		return nil, errors.New("no blob store configured")
	}

	atts := make([]Attachment, 0, len(files))
	for _, f := range files {
		key := attachmentPath(conversationID, f.OriginalName)
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = s.blobs.Save(ctx, key, rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		atts = append(atts, Attachment{
			OriginalName: f.OriginalName,
			MimeType:     f.MimeType,
			SizeBytes:    f.SizeBytes,
			Disk:         s.disk,
			Path:         key,
		})
	}

	msgType := MessageText
	if len(files) > 0 {
		msgType = MessageAttachment
	}
	var bodyPtr *string
	if body != "" {
		bodyPtr = &body
	}

	m := &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           bodyPtr,
		Type:           msgType,
	}
	if err := s.repo.CreateMessageWithAttachments(ctx, m, atts); err != nil {
		return nil, err
	}

	s.fillAttachmentURLs(m.Attachments)
	if infos, err := s.repo.GetUserInfos(ctx, []uint64{senderID}); err == nil {
		if info, ok := infos[senderID]; ok {
			m.Sender = &info
		}
	}

	s.publishMessageCreated(ctx, m)
	return m, nil
}

// publishMessageCreated hands the event to the broker. A broker failure only
// logs: the message is already committed and the send must not fail.
func (s *Service) publishMessageCreated(ctx context.Context, m *Message) {
	if s.events == nil {
		return
	}
	parts, err := s.repo.ListParticipants(ctx, m.ConversationID)
	if err != nil {
		log.Printf("[SendMessage] load participants for event failed conversation_id=%d err=%v", m.ConversationID, err)
		return
	}
	var recipient uint64
	for _, p := range parts {
		if p.UserID != m.SenderID {
			recipient = p.UserID
		}
	}
	eventID, err := common.NewULID()
	if err != nil {
		log.Printf("[SendMessage] event id failed conversation_id=%d err=%v", m.ConversationID, err)
		return
	}
	ev := MessageCreatedEvent{
		EventID:        eventID,
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		SenderID:       m.SenderID,
		RecipientID:    recipient,
	}
	if err := s.events.PublishMessageCreated(ctx, ev); err != nil {
		log.Printf("[SendMessage] publish event failed conversation_id=%d message_id=%d err=%v", m.ConversationID, m.ID, err)
	}
}

func (s *Service) fillAttachmentURLs(atts []Attachment) {
	if s.blobs == nil {
		return
	}
	for i := range atts {
		atts[i].URL = s.blobs.URL(atts[i].Path)
	}
}

// GetMessagesAndMarkRead fetches one page newest-first and, as a side effect,
// marks the conversation read up to its latest message. The mark is
// best-effort: a failure there still returns the page.
func (s *Service) GetMessagesAndMarkRead(ctx context.Context, conversationID, userID uint64, perPage int, cursor string) ([]Message, string, error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, "", err
	}

	msgs, next, err := s.repo.PaginateMessages(ctx, conversationID, clampPerPage(perPage), cursor)
	if err != nil {
		return nil, "", err
	}

	senderIDs := make([]uint64, 0, len(msgs))
	seen := make(map[uint64]bool, 2)
	for _, m := range msgs {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			senderIDs = append(senderIDs, m.SenderID)
		}
	}
	infos, err := s.repo.GetUserInfos(ctx, senderIDs)
	if err != nil {
		return nil, "", err
	}
	for i := range msgs {
		s.fillAttachmentURLs(msgs[i].Attachments)
		if info, ok := infos[msgs[i].SenderID]; ok {
			msgs[i].Sender = &info
		}
	}

	if _, err := s.MarkAsRead(ctx, MarkReadInput{ConversationID: conversationID, UserID: userID}); err != nil {
		log.Printf("[GetMessages] mark read failed conversation_id=%d uid=%d err=%v", conversationID, userID, err)
	}
	return msgs, next, nil
}

type MarkReadInput struct {
	ConversationID uint64
	UserID         uint64
	MessageID      *uint64 // nil resolves to the latest message
}

// MarkAsRead advances the caller's read marker and returns the fresh unread
// count. Marking an empty conversation is a success no-op.
func (s *Service) MarkAsRead(ctx context.Context, in MarkReadInput) (int64, error) {
	if _, err := s.requireParticipant(ctx, in.ConversationID, in.UserID); err != nil {
		return 0, err
	}

	var target uint64
	if in.MessageID != nil {
		belongs, err := s.repo.MessageBelongs(ctx, in.ConversationID, *in.MessageID)
		if err != nil {
			return 0, err
		}
		if !belongs {
			return 0, invalid("message_id", "message %d does not belong to conversation %d", *in.MessageID, in.ConversationID)
		}
		target = *in.MessageID
	} else {
		latest, err := s.repo.LatestMessageID(ctx, in.ConversationID)
		if err != nil {
			return 0, err
		}
		if latest == 0 {
			return 0, nil
		}
		target = latest
	}

	if _, err := s.repo.UpdateReadMarker(ctx, in.ConversationID, in.UserID, target); err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, in.ConversationID, in.UserID)
}

// UnreadCount exposes the fresh watermark-derived count.
func (s *Service) UnreadCount(ctx context.Context, conversationID, userID uint64) (int64, error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, conversationID, userID)
}

// GetUserConversations lists the caller's conversations newest activity
// first, each with the other participant, a last-message preview, and the
// unread count.
func (s *Service) GetUserConversations(ctx context.Context, userID uint64, search string, perPage int, cursor string) ([]ConversationListItem, string, error) {
	rows, next, err := s.repo.ListUserConversations(ctx, userID, search, clampPerPage(perPage), cursor)
	if err != nil {
		return nil, "", err
	}

	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	previews, err := s.repo.LastMessages(ctx, ids)
	if err != nil {
		return nil, "", err
	}
	unreadRows, err := s.repo.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	unread := make(map[uint64]int64, len(unreadRows))
	for _, u := range unreadRows {
		unread[u.ConversationID] = u.UnreadCount
	}

	items := make([]ConversationListItem, 0, len(rows))
	for _, row := range rows {
		item := ConversationListItem{
			ID: row.ID,
			Other: UserInfo{
				ID:        row.OtherUserID,
				Name:      row.OtherUsername,
				AvatarURL: row.OtherAvatarURL,
			},
			UnreadCount: unread[row.ID],
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
		if m, ok := previews[row.ID]; ok {
			item.LastMessage = &MessagePreview{
				ID:        m.ID,
				SenderID:  m.SenderID,
				Body:      m.Body,
				Type:      m.Type,
				CreatedAt: m.CreatedAt,
			}
		}
		items = append(items, item)
	}
	return items, next, nil
}
