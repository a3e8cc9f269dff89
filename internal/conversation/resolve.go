package conversation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/4xmen/whisper/internal/models"
	"github.com/4xmen/whisper/internal/store"
)

// resolveSender finds display info for a message sender: the bound user
// from the binding itself, other users from their profile row, and anything
// else (assistant identities) through the fallback resolver.
func (s *Store) resolveSender(senderID string) (name, avatar string) {
	if senderID == s.binding.UserID {
		return s.binding.Username, s.binding.Avatar
	}

	s.mu.Lock()
	cached, ok := s.profiles[senderID]
	s.mu.Unlock()
	if ok {
		return cached[0], cached[1]
	}

	err := s.db.QueryRow(
		"SELECT username, avatar FROM profiles WHERE id = ?", senderID,
	).Scan(&name, &avatar)
	if err == sql.ErrNoRows && s.resolve != nil {
		var found bool
		name, avatar, found = s.resolve(senderID)
		if !found {
			name = "Unknown"
		}
		err = nil
	} else if err != nil {
		return "Unknown", ""
	}

	s.mu.Lock()
	s.profiles[senderID] = [2]string{name, avatar}
	s.mu.Unlock()
	return name, avatar
}

func (s *Store) scanMessage(rows *sql.Rows) (models.ChatMessage, error) {
	var msg models.ChatMessage
	var senderID, receiverID string
	var isRead int
	var replyID, replySender, replyContent sql.NullString

	if err := rows.Scan(
		&msg.ID, &senderID, &receiverID, &msg.Content, &msg.Timestamp,
		&isRead, &replyID, &replySender, &replyContent,
	); err != nil {
		return msg, fmt.Errorf("failed to scan message: %w", err)
	}

	return s.shapeMessage(msg, senderID, isRead == 1, replyID, replySender, replyContent), nil
}

func (s *Store) shapeMessage(msg models.ChatMessage, senderID string, isRead bool, replyID, replySender, replyContent sql.NullString) models.ChatMessage {
	msg.ChatID = s.binding.TargetID
	msg.SenderID = senderID
	msg.IsRead = isRead
	msg.IsOwnMessage = senderID == s.binding.UserID
	msg.SenderName, msg.SenderAvatar = s.resolveSender(senderID)
	if replyID.Valid {
		msg.ReplyTo = &models.ReplyRef{
			ID:         replyID.String,
			SenderName: replySender.String,
			Content:    replyContent.String,
		}
	}
	return msg
}

// messageFromRow shapes a change-feed payload into a ChatMessage.
func (s *Store) messageFromRow(row store.Row) (models.ChatMessage, error) {
	msg := models.ChatMessage{}

	id, ok := row["id"].(string)
	if !ok || id == "" {
		return msg, fmt.Errorf("event row has no id: %v", row)
	}
	msg.ID = id

	senderID, _ := row["sender_id"].(string)
	content, _ := row["content"].(string)
	msg.Content = content

	switch ts := row["timestamp"].(type) {
	case time.Time:
		msg.Timestamp = ts
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return msg, fmt.Errorf("event row has bad timestamp %q: %w", ts, err)
		}
		msg.Timestamp = parsed
	default:
		msg.Timestamp = time.Now().UTC()
	}

	isRead := fmt.Sprintf("%v", row["is_read"]) == "1"

	var replyID, replySender, replyContent sql.NullString
	if v, ok := row["reply_to_id"].(string); ok && v != "" {
		replyID = sql.NullString{String: v, Valid: true}
		rs, _ := row["reply_to_sender"].(string)
		rc, _ := row["reply_to_content"].(string)
		replySender = sql.NullString{String: rs, Valid: true}
		replyContent = sql.NullString{String: rc, Valid: true}
	}

	return s.shapeMessage(msg, senderID, isRead, replyID, replySender, replyContent), nil
}
