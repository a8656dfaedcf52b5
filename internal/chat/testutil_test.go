package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/gopherchat/gopherchat/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &Conversation{}, &Participant{}, &Message{}, &Attachment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id uint64, username string) {
	t.Helper()
	u := models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}
}

// memBlobStore keeps attachment bytes in a map; the chat core only sees the
// BlobStore interface either way.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Save(ctx context.Context, objectPath string, r io.Reader) error {
	_ = ctx
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[objectPath] = b
	s.mu.Unlock()
	return nil
}

func (s *memBlobStore) URL(objectPath string) string {
	return "mem://" + objectPath
}

func (s *memBlobStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []MessageCreatedEvent
	fail   bool
}

func (p *recordingPublisher) PublishMessageCreated(ctx context.Context, ev MessageCreatedEvent) error {
	_ = ctx
	if p.fail {
		return errors.New("broker down")
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

type testEnv struct {
	db    *gorm.DB
	repo  *Repo
	svc   *Service
	blobs *memBlobStore
	pub   *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)
	repo := NewRepo(db)
	blobs := newMemBlobStore()
	pub := &recordingPublisher{}
	svc := NewService(repo, AttachmentLimits{MaxFiles: 10, MaxFileBytes: 10 << 20}, "test", blobs, pub)
	return &testEnv{db: db, repo: repo, svc: svc, blobs: blobs, pub: pub}
}

func textUpload(name, mime, content string) FileUpload {
	return FileUpload{
		OriginalName: name,
		MimeType:     mime,
		SizeBytes:    int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

func mustSend(t *testing.T, env *testEnv, convID, senderID uint64, body string) *Message {
	t.Helper()
	m, err := env.svc.SendMessage(context.Background(), convID, senderID, body, nil)
	if err != nil {
		t.Fatalf("send message conv=%d sender=%d: %v", convID, senderID, err)
	}
	return m
}

func mustConversation(t *testing.T, env *testEnv, a, b uint64) *ConversationDetail {
	t.Helper()
	detail, err := env.svc.GetOrCreateConversation(context.Background(), a, b)
	if err != nil {
		t.Fatalf("get or create conversation (%d,%d): %v", a, b, err)
	}
	return detail
}
