package chat

import (
	"context"
	"testing"
	"time"
)

func TestCreateConversationConvergesOnOneRow(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 1, "alice")
	seedUser(t, env.db, 2, "bob")
	ctx := context.Background()

	first, created, err := env.repo.CreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !created {
		t.Fatalf("first create reported created=false")
	}

	// a second create hits the pair_key unique index and must resolve to the
	// existing row, in either argument order
	second, created, err := env.repo.CreateConversation(ctx, 2, 1)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatalf("second create reported created=true")
	}
	if second.ID != first.ID {
		t.Fatalf("second create returned id %d, want %d", second.ID, first.ID)
	}

	var convCount int64
	if err := env.db.Model(&Conversation{}).Count(&convCount).Error; err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if convCount != 1 {
		t.Fatalf("conversation rows = %d, want 1", convCount)
	}

	parts, err := env.repo.ListParticipants(ctx, first.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(parts) != 2 || parts[0].UserID != 1 || parts[1].UserID != 2 {
		t.Fatalf("unexpected participants: %+v", parts)
	}
}

func TestUpdateReadMarkerOnlyTouchesExistingRow(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 1, "alice")
	seedUser(t, env.db, 2, "bob")
	ctx := context.Background()

	conv, _, err := env.repo.CreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustSendRaw := func(sender uint64) *Message {
		body := "hi"
		m := &Message{ConversationID: conv.ID, SenderID: sender, Body: &body, Type: MessageText}
		if err := env.repo.CreateMessageWithAttachments(ctx, m, nil); err != nil {
			t.Fatalf("insert message: %v", err)
		}
		return m
	}
	m := mustSendRaw(1)

	affected, err := env.repo.UpdateReadMarker(ctx, conv.ID, 2, m.ID)
	if err != nil {
		t.Fatalf("update marker: %v", err)
	}
	if !affected {
		t.Fatalf("expected participant row to be updated")
	}

	p, err := env.repo.GetParticipant(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.LastReadMessageID == nil || *p.LastReadMessageID != m.ID {
		t.Fatalf("marker = %v, want %d", p.LastReadMessageID, m.ID)
	}
	if p.LastReadAt == nil {
		t.Fatalf("last_read_at not set")
	}

	// user 3 has no participant row: single-row UPDATE affects nothing
	affected, err = env.repo.UpdateReadMarker(ctx, conv.ID, 3, m.ID)
	if err != nil {
		t.Fatalf("update marker for outsider: %v", err)
	}
	if affected {
		t.Fatalf("outsider update reported a row affected")
	}
}

func TestLatestMessageIDSkipsDeleted(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 1, "alice")
	seedUser(t, env.db, 2, "bob")
	ctx := context.Background()

	conv, _, err := env.repo.CreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	latest, err := env.repo.LatestMessageID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("latest on empty: %v", err)
	}
	if latest != 0 {
		t.Fatalf("latest on empty = %d, want 0", latest)
	}

	body := "one"
	m1 := &Message{ConversationID: conv.ID, SenderID: 1, Body: &body, Type: MessageText}
	if err := env.repo.CreateMessageWithAttachments(ctx, m1, nil); err != nil {
		t.Fatalf("insert m1: %v", err)
	}
	m2 := &Message{ConversationID: conv.ID, SenderID: 1, Body: &body, Type: MessageText}
	if err := env.repo.CreateMessageWithAttachments(ctx, m2, nil); err != nil {
		t.Fatalf("insert m2: %v", err)
	}

	now := time.Now()
	if err := env.db.Model(&Message{}).Where("id = ?", m2.ID).Update("deleted_at", &now).Error; err != nil {
		t.Fatalf("soft delete m2: %v", err)
	}

	latest, err = env.repo.LatestMessageID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != m1.ID {
		t.Fatalf("latest = %d, want %d (soft-deleted message must not count)", latest, m1.ID)
	}
}

func TestMessageBelongs(t *testing.T) {
	env := newTestEnv(t)
	for i := uint64(1); i <= 3; i++ {
		seedUser(t, env.db, i, "user"+string(rune('a'+i-1)))
	}
	ctx := context.Background()

	convA, _, err := env.repo.CreateConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	convB, _, err := env.repo.CreateConversation(ctx, 1, 3)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	body := "hello"
	m := &Message{ConversationID: convA.ID, SenderID: 1, Body: &body, Type: MessageText}
	if err := env.repo.CreateMessageWithAttachments(ctx, m, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := env.repo.MessageBelongs(ctx, convA.ID, m.ID)
	if err != nil || !ok {
		t.Fatalf("MessageBelongs(own) = %v, %v; want true", ok, err)
	}
	ok, err = env.repo.MessageBelongs(ctx, convB.ID, m.ID)
	if err != nil || ok {
		t.Fatalf("MessageBelongs(foreign) = %v, %v; want false", ok, err)
	}
}
