// Package conversation maintains the message list for one bound chat
// target: a contact, a group, or an assistant. History load and realtime
// push feed the same ordered log; send, delete, and clear are best-effort
// operations that log failures instead of propagating them.
package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/4xmen/whisper/internal/models"
	"github.com/4xmen/whisper/internal/store"
)

// Kind says how the bound target is interpreted.
type Kind int

const (
	KindDirect Kind = iota
	KindGroup
	KindAssistant
)

// Binding identifies one conversation: who is looking at it and what it is
// bound to. An empty TargetID yields an inert store.
type Binding struct {
	UserID   string
	Username string
	Avatar   string
	TargetID string
	Kind     Kind
}

func (b Binding) isAIChat() bool { return b.Kind == KindAssistant }

// Resolver maps a sender id that is not a profile (an assistant identity)
// to display info.
type Resolver func(senderID string) (name, avatar string, ok bool)

// Synthetic is a locally composed message persisted as if sent by another
// identity, the assistant reply path.
type Synthetic struct {
	SenderID     string
	SenderName   string
	SenderAvatar string
	Content      string
}

// Store is the conversation state for one binding. One instance exists per
// open conversation view.
type Store struct {
	db      *sql.DB
	feed    *store.Feed
	binding Binding
	resolve Resolver

	mu       sync.Mutex
	log      *messageLog
	sub      *store.Subscription
	profiles map[string][2]string // sender id -> name, avatar
}

func New(db *sql.DB, feed *store.Feed, binding Binding) *Store {
	return &Store{
		db:       db,
		feed:     feed,
		binding:  binding,
		log:      newMessageLog(),
		profiles: make(map[string][2]string),
	}
}

// WithResolver installs a fallback for sender ids that have no profile row.
func (s *Store) WithResolver(r Resolver) *Store {
	s.resolve = r
	return s
}

// Bound reports whether the store has a real target. An unbound store
// short-circuits every operation to an empty result.
func (s *Store) Bound() bool {
	return s.binding.TargetID != ""
}

// Messages returns the current ordered snapshot.
func (s *Store) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.snapshot()
}

// Load queries history for the bound conversation and merges it into the
// log. Safe to call after pushes have already arrived.
func (s *Store) Load(ctx context.Context) ([]models.ChatMessage, error) {
	if !s.Bound() {
		return nil, nil
	}

	var rows *sql.Rows
	var err error
	if s.binding.Kind == KindGroup {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, sender_id, receiver_id, content, timestamp, is_read, reply_to_id, reply_to_sender, reply_to_content
			FROM messages
			WHERE receiver_id = ?
			ORDER BY timestamp, id
		`, s.binding.TargetID)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, sender_id, receiver_id, content, timestamp, is_read, reply_to_id, reply_to_sender, reply_to_content
			FROM messages
			WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
			  AND is_ai_chat = ?
			ORDER BY timestamp, id
		`, s.binding.UserID, s.binding.TargetID, s.binding.TargetID, s.binding.UserID, boolToInt(s.binding.isAIChat()))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var loaded []models.ChatMessage
	for rows.Next() {
		msg, err := s.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	s.mu.Lock()
	for _, msg := range loaded {
		s.log.insert(msg)
	}
	out := s.log.snapshot()
	s.mu.Unlock()

	return out, nil
}

// Subscribe opens the realtime channel for the bound conversation. onNew is
// invoked with each fully resolved message that was not already in the log.
func (s *Store) Subscribe(onNew func(models.ChatMessage)) error {
	if !s.Bound() {
		return nil
	}

	sub, err := s.feed.Subscribe("messages", store.EventInsert, s.filter())
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.sub != nil {
		s.sub.Close()
	}
	s.sub = sub
	s.mu.Unlock()

	go func() {
		for ev := range sub.C {
			msg, err := s.messageFromRow(ev.Row)
			if err != nil {
				log.Printf("conversation: dropping push event: %v", err)
				continue
			}
			s.mu.Lock()
			fresh := s.log.insert(msg)
			s.mu.Unlock()
			if fresh && onNew != nil {
				onNew(msg)
			}
		}
	}()

	return nil
}

// Close tears down the push subscription. An in-flight Load is not aborted;
// its results merge harmlessly through the log.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}

// Send persists a message. With a non-nil synthetic the row is written with
// the synthetic identity as sender and the bound user as receiver, already
// read. Soft-fails: returns (nil, false) after logging.
func (s *Store) Send(ctx context.Context, content string, replyTo *models.ReplyRef, synthetic *Synthetic) (*models.ChatMessage, bool) {
	if !s.Bound() {
		return nil, false
	}

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    s.binding.TargetID,
		Timestamp: time.Now().UTC(),
		ReplyTo:   replyTo,
	}

	var senderID, receiverID string
	if synthetic != nil {
		senderID = synthetic.SenderID
		receiverID = s.binding.UserID
		msg.SenderID = synthetic.SenderID
		msg.SenderName = synthetic.SenderName
		msg.SenderAvatar = synthetic.SenderAvatar
		msg.Content = synthetic.Content
		msg.IsRead = true
	} else {
		senderID = s.binding.UserID
		receiverID = s.binding.TargetID
		msg.SenderID = s.binding.UserID
		msg.SenderName = s.binding.Username
		msg.SenderAvatar = s.binding.Avatar
		msg.Content = content
		msg.IsOwnMessage = true
	}

	var replyID, replySender, replyContent *string
	if replyTo != nil {
		replyID, replySender, replyContent = &replyTo.ID, &replyTo.SenderName, &replyTo.Content
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, timestamp, is_read, is_ai_chat, reply_to_id, reply_to_sender, reply_to_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, senderID, receiverID, msg.Content, msg.Timestamp, boolToInt(msg.IsRead), boolToInt(s.binding.isAIChat()), replyID, replySender, replyContent)
	if err != nil {
		log.Printf("conversation: failed to send message to %s: %v", s.binding.TargetID, err)
		return nil, false
	}

	s.mu.Lock()
	s.log.insert(msg)
	s.mu.Unlock()

	row := store.Row{
		"id": msg.ID, "sender_id": senderID, "receiver_id": receiverID,
		"content": msg.Content, "timestamp": msg.Timestamp.Format(time.RFC3339Nano),
		"is_read": boolToInt(msg.IsRead), "is_ai_chat": boolToInt(s.binding.isAIChat()),
	}
	if replyTo != nil {
		row["reply_to_id"] = replyTo.ID
		row["reply_to_sender"] = replyTo.SenderName
		row["reply_to_content"] = replyTo.Content
	}
	s.feed.Publish("messages", store.EventInsert, row)

	return &msg, true
}

// DeleteMessage removes a message the current user sent. Returns false for
// anyone else's message, leaving it untouched.
func (s *Store) DeleteMessage(ctx context.Context, id string) bool {
	if !s.Bound() {
		return false
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM messages WHERE id = ? AND sender_id = ?", id, s.binding.UserID,
	)
	if err != nil {
		log.Printf("conversation: failed to delete message %s: %v", id, err)
		return false
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false
	}

	s.mu.Lock()
	s.log.remove(id)
	s.mu.Unlock()

	s.feed.Publish("messages", store.EventDelete, store.Row{
		"id": id, "sender_id": s.binding.UserID, "receiver_id": s.binding.TargetID,
	})
	return true
}

// DeleteChat wipes the whole conversation. Used for explicit history clear
// and for the new-assistant-chat flow that resets context.
func (s *Store) DeleteChat(ctx context.Context) bool {
	if !s.Bound() {
		return false
	}

	var err error
	if s.binding.Kind == KindGroup {
		_, err = s.db.ExecContext(ctx, "DELETE FROM messages WHERE receiver_id = ?", s.binding.TargetID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM messages
			WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
			  AND is_ai_chat = ?
		`, s.binding.UserID, s.binding.TargetID, s.binding.TargetID, s.binding.UserID, boolToInt(s.binding.isAIChat()))
	}
	if err != nil {
		log.Printf("conversation: failed to delete chat with %s: %v", s.binding.TargetID, err)
		return false
	}

	s.mu.Lock()
	s.log.clear()
	s.mu.Unlock()
	return true
}

// MarkRead flags every message addressed to the current user in this
// conversation as read.
func (s *Store) MarkRead(ctx context.Context) error {
	if !s.Bound() {
		return nil
	}

	var err error
	if s.binding.Kind == KindGroup {
		_, err = s.db.ExecContext(ctx,
			"UPDATE messages SET is_read = 1 WHERE receiver_id = ? AND sender_id != ?",
			s.binding.TargetID, s.binding.UserID,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE messages SET is_read = 1 WHERE sender_id = ? AND receiver_id = ? AND is_ai_chat = ?",
			s.binding.TargetID, s.binding.UserID, boolToInt(s.binding.isAIChat()),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update messages: %w", err)
	}

	s.mu.Lock()
	for i := range s.log.entries {
		if s.log.entries[i].SenderID != s.binding.UserID {
			s.log.entries[i].IsRead = true
		}
	}
	s.mu.Unlock()
	return nil
}

// filter builds the change-feed predicate matching this conversation.
func (s *Store) filter() string {
	if s.binding.Kind == KindGroup {
		return "receiver_id=eq." + s.binding.TargetID
	}
	u, t := s.binding.UserID, s.binding.TargetID
	return fmt.Sprintf(
		"and(is_ai_chat.eq.%d,or(and(sender_id.eq.%s,receiver_id.eq.%s),and(sender_id.eq.%s,receiver_id.eq.%s)))",
		boolToInt(s.binding.isAIChat()), u, t, t, u,
	)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
