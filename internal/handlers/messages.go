package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/4xmen/whisper/internal/assistant"
	"github.com/4xmen/whisper/internal/conversation"
	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/internal/models"
	"github.com/4xmen/whisper/internal/push"
	"github.com/4xmen/whisper/internal/session"
	"github.com/4xmen/whisper/internal/store"
	"github.com/4xmen/whisper/pkg/i18n"
)

// OnlineChecker interface for checking user online status
type OnlineChecker interface {
	IsUserOnline(userID string) bool
}

// MessageHandler serves conversation history and message mutations. Each
// request binds a fresh conversation store for the chat it addresses.
type MessageHandler struct {
	db       *sql.DB
	feed     *store.Feed
	sessions *session.Manager
	online   OnlineChecker
	notifier *push.Notifier

	assistantMinWait     time.Duration
	assistantMaxWait     time.Duration
	assistantWelcomeWait time.Duration
}

func NewMessageHandler(db *sql.DB, feed *store.Feed, sessions *session.Manager, online OnlineChecker, notifier *push.Notifier) *MessageHandler {
	return &MessageHandler{
		db:                   db,
		feed:                 feed,
		sessions:             sessions,
		online:               online,
		notifier:             notifier,
		assistantMinWait:     time.Second,
		assistantMaxWait:     1500 * time.Millisecond,
		assistantWelcomeWait: 500 * time.Millisecond,
	}
}

// WithAssistantWaits overrides the assistant reply delays.
func (h *MessageHandler) WithAssistantWaits(minWait, maxWait, welcomeWait time.Duration) *MessageHandler {
	h.assistantMinWait = minWait
	h.assistantMaxWait = maxWait
	h.assistantWelcomeWait = welcomeWait
	return h
}

func kindFromString(kind string) (conversation.Kind, bool) {
	switch kind {
	case "", "direct":
		return conversation.KindDirect, true
	case "group":
		return conversation.KindGroup, true
	case "assistant":
		return conversation.KindAssistant, true
	}
	return 0, false
}

// chatStore builds the conversation store for one request. The caller's
// identity comes from the live session, never from the request body.
func (h *MessageHandler) chatStore(userID, chatID, kind string) (*conversation.Store, conversation.Kind, error) {
	k, ok := kindFromString(kind)
	if !ok {
		return nil, 0, errs.Validation("invalid request")
	}
	if chatID == "" {
		return nil, 0, errs.Validation("invalid request")
	}

	// Snapshot, not the live pointer: profile edits mutate the session
	// concurrently with message sends.
	snap, live := h.sessions.Snapshot(userID)
	if !live {
		return nil, 0, errs.Auth("no active session")
	}

	if k == conversation.KindAssistant {
		if _, found := assistant.ByID(chatID); !found {
			return nil, 0, errs.NotFound("assistant not found")
		}
	}

	cs := conversation.New(h.db, h.feed, conversation.Binding{
		UserID:   userID,
		Username: snap.User.Username,
		Avatar:   snap.User.Avatar,
		TargetID: chatID,
		Kind:     k,
	}).WithResolver(assistant.Resolve)
	return cs, k, nil
}

// GetConversation loads the message history for one chat. Opening an empty
// assistant chat schedules the persona's greeting.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cs, kind, err := h.chatStore(userID, c.Query("chat_id"), c.Query("kind"))
	if err != nil {
		fail(c, err)
		return
	}

	messages, err := cs.Load(c.Request.Context())
	if err != nil {
		fail(c, errs.Remote("failed to load conversation", err))
		return
	}

	if kind == conversation.KindAssistant && len(messages) == 0 {
		persona, _ := assistant.ByID(c.Query("chat_id"))
		responder := assistant.NewResponder(cs, persona).
			WithWaits(h.assistantMinWait, h.assistantMaxWait, h.assistantWelcomeWait)
		go responder.Welcome(context.Background())
	}

	if messages == nil {
		messages = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type SendMessageRequest struct {
	ChatID  string           `json:"chat_id" binding:"required"`
	Kind    string           `json:"kind"`
	Content string           `json:"content" binding:"required"`
	ReplyTo *models.ReplyRef `json:"reply_to"`
}

// SendMessage persists one outgoing message. Assistant chats get a reply
// scheduled; offline direct receivers get a web push.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	cs, kind, err := h.chatStore(userID, req.ChatID, req.Kind)
	if err != nil {
		fail(c, err)
		return
	}

	msg, sent := cs.Send(c.Request.Context(), req.Content, req.ReplyTo, nil)
	if !sent {
		fail(c, errs.Remote("failed to send message", nil))
		return
	}

	switch kind {
	case conversation.KindAssistant:
		persona, _ := assistant.ByID(req.ChatID)
		responder := assistant.NewResponder(cs, persona).
			WithWaits(h.assistantMinWait, h.assistantMaxWait, h.assistantWelcomeWait)
		go responder.Reply(context.Background(), req.Content)

	case conversation.KindGroup:
		h.notifyOfflineMembers(req.ChatID, userID, c.GetString("username"))

	default:
		if !h.online.IsUserOnline(req.ChatID) {
			h.notifier.SendNewMessageNotification(req.ChatID, c.GetString("username"))
		}
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) notifyOfflineMembers(groupID, senderID, senderName string) {
	rows, err := h.db.Query(
		"SELECT user_id FROM group_members WHERE group_id = ? AND user_id != ?",
		groupID, senderID,
	)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			continue
		}
		if !h.online.IsUserOnline(memberID) {
			h.notifier.SendNewMessageNotification(memberID, senderName)
		}
	}
}

// DeleteMessage removes one message the caller sent.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cs, _, err := h.chatStore(userID, c.Query("chat_id"), c.Query("kind"))
	if err != nil {
		fail(c, err)
		return
	}

	if !cs.DeleteMessage(c.Request.Context(), c.Param("id")) {
		fail(c, errs.NotFound("message not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ClearChat wipes the caller's history with one chat target.
func (h *MessageHandler) ClearChat(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cs, _, err := h.chatStore(userID, c.Param("id"), c.Query("kind"))
	if err != nil {
		fail(c, err)
		return
	}

	if !cs.DeleteChat(c.Request.Context()) {
		fail(c, errs.Remote("failed to delete chat", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MarkRead flips every incoming message in the chat to read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cs, _, err := h.chatStore(userID, c.Param("id"), c.Query("kind"))
	if err != nil {
		fail(c, err)
		return
	}

	if err := cs.MarkRead(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ConversationPreview is one row of the conversation list.
type ConversationPreview struct {
	ChatID        string     `json:"chat_id"`
	Kind          string     `json:"kind"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar,omitempty"`
	Status        string     `json:"status,omitempty"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`
}

// GetConversations returns a preview row per contact, group, and assistant
// chat with history, newest first.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	snap, ok := h.sessions.Snapshot(userID)
	if !ok {
		fail(c, errs.Auth("no active session"))
		return
	}

	previews := []ConversationPreview{}

	for _, contact := range snap.Contacts {
		p := ConversationPreview{
			ChatID: contact.ID,
			Kind:   "direct",
			Name:   contact.Name,
			Avatar: contact.Avatar,
			Status: contact.Status,
		}
		h.fillDirectPreview(&p, userID, contact.ID, 0)
		previews = append(previews, p)
	}

	for _, group := range snap.Groups {
		p := ConversationPreview{
			ChatID: group.ID,
			Kind:   "group",
			Name:   group.Name,
			Avatar: group.Avatar,
		}
		h.fillGroupPreview(&p, userID, group.ID)
		previews = append(previews, p)
	}

	for _, persona := range assistant.Catalog() {
		if !persona.IsAvailable {
			continue
		}
		p := ConversationPreview{
			ChatID: persona.ID,
			Kind:   "assistant",
			Name:   persona.Name,
			Avatar: persona.Avatar,
		}
		h.fillDirectPreview(&p, userID, persona.ID, 1)
		if p.LastMessageAt != nil {
			previews = append(previews, p)
		}
	}

	sort.Slice(previews, func(i, j int) bool {
		a, b := previews[i].LastMessageAt, previews[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	c.JSON(http.StatusOK, gin.H{"conversations": previews})
}

func (h *MessageHandler) fillDirectPreview(p *ConversationPreview, userID, otherID string, aiChat int) {
	var content sql.NullString
	var at sql.NullTime
	h.db.QueryRow(`
		SELECT content, timestamp FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		  AND is_ai_chat = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1
	`, userID, otherID, otherID, userID, aiChat).Scan(&content, &at)
	if at.Valid {
		p.LastMessage = content.String
		p.LastMessageAt = &at.Time
	}

	h.db.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0 AND is_ai_chat = ?
	`, otherID, userID, aiChat).Scan(&p.UnreadCount)
}

func (h *MessageHandler) fillGroupPreview(p *ConversationPreview, userID, groupID string) {
	var content sql.NullString
	var at sql.NullTime
	h.db.QueryRow(`
		SELECT content, timestamp FROM messages
		WHERE receiver_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1
	`, groupID).Scan(&content, &at)
	if at.Valid {
		p.LastMessage = content.String
		p.LastMessageAt = &at.Time
	}

	h.db.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE receiver_id = ? AND sender_id != ? AND is_read = 0
	`, groupID, userID).Scan(&p.UnreadCount)
}
