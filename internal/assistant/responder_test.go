package assistant

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/4xmen/whisper/internal/conversation"
	"github.com/4xmen/whisper/internal/store"
)

var testDBCounter int

func newAssistantChat(t *testing.T) (*conversation.Store, Persona) {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:assistanttest%d?mode=memory&cache=shared", testDBCounter)
	db, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Conn().Exec(
		"INSERT INTO profiles (id, username, email, password_hash, avatar) VALUES ('alice-id', 'alice', 'alice@example.com', 'x', '/avatars/alice.png')",
	); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	persona, _ := ByID("sage-ai")
	chat := conversation.New(db.Conn(), store.NewFeed(), conversation.Binding{
		UserID:   "alice-id",
		Username: "alice",
		Avatar:   "/avatars/alice.png",
		TargetID: persona.ID,
		Kind:     conversation.KindAssistant,
	}).WithResolver(Resolve)
	t.Cleanup(chat.Close)

	return chat, persona
}

func newTestResponder(chat *conversation.Store, persona Persona) *Responder {
	return NewResponder(chat, persona).
		WithWaits(0, 0, 0).
		WithRand(rand.New(rand.NewSource(1)))
}

func TestWelcomeGreetsEmptyChat(t *testing.T) {
	chat, persona := newAssistantChat(t)
	r := newTestResponder(chat, persona)

	msg, ok := r.Welcome(context.Background())
	if !ok {
		t.Fatal("welcome was not sent on an empty chat")
	}
	if msg.SenderID != persona.ID || msg.SenderName != persona.Name {
		t.Fatalf("welcome sender = %s (%s), want persona", msg.SenderID, msg.SenderName)
	}
	if msg.Content != WelcomeText(persona.Name) {
		t.Fatalf("welcome content = %q", msg.Content)
	}
	if msg.IsOwnMessage {
		t.Fatal("welcome marked as the user's own message")
	}
	if !msg.IsRead {
		t.Fatal("assistant greeting should arrive pre-read")
	}
}

func TestWelcomeSkipsChatWithHistory(t *testing.T) {
	chat, persona := newAssistantChat(t)
	r := newTestResponder(chat, persona)

	if _, ok := chat.Send(context.Background(), "hi there", nil, nil); !ok {
		t.Fatal("failed to seed user message")
	}
	if _, ok := r.Welcome(context.Background()); ok {
		t.Fatal("welcome sent into a chat that already has history")
	}
}

func TestReplyPersistsAssistantMessage(t *testing.T) {
	chat, persona := newAssistantChat(t)
	r := newTestResponder(chat, persona)

	if _, ok := r.Welcome(context.Background()); !ok {
		t.Fatal("welcome failed")
	}
	if _, ok := chat.Send(context.Background(), "What is the capital of France?", nil, nil); !ok {
		t.Fatal("user send failed")
	}

	reply, ok := r.Reply(context.Background(), "What is the capital of France?")
	if !ok {
		t.Fatal("reply was not sent")
	}
	if reply.SenderID != persona.ID {
		t.Fatalf("reply sender = %s, want %s", reply.SenderID, persona.ID)
	}
	if !strings.Contains(reply.Content, persona.Style) {
		t.Fatalf("reply missing persona flavor: %q", reply.Content)
	}

	msgs := chat.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected welcome, question, reply; got %d messages", len(msgs))
	}
	if msgs[2].Content != reply.Content {
		t.Fatal("reply not appended after the user's question")
	}
}

func TestReplyRespectsCancelledContext(t *testing.T) {
	chat, persona := newAssistantChat(t)
	r := NewResponder(chat, persona).WithRand(rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := r.Reply(ctx, "anything"); ok {
		t.Fatal("reply sent despite cancelled context")
	}
	if n := len(chat.Messages()); n != 0 {
		t.Fatalf("cancelled reply still persisted %d messages", n)
	}
}
