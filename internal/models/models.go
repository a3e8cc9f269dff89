package models

import "time"

// Presence values a user can set on their profile.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// Friend request lifecycle. Accepted and rejected are terminal.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Avatar        string    `json:"avatar"`
	Status        string    `json:"status"`
	StatusMessage *string   `json:"status_message,omitempty"`
	Bio           *string   `json:"bio,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	Friends          []string `json:"friends"`
	SentRequests     []string `json:"sent_requests"`
	ReceivedRequests []string `json:"received_requests"`
}

// Contact is the projection of another user as the current user sees them.
// RequestStatus is empty for confirmed contacts and carries the pending or
// rejected state while a friend request is in flight.
type Contact struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Avatar        string    `json:"avatar"`
	Status        string    `json:"status"`
	StatusMessage *string   `json:"status_message,omitempty"`
	LastActive    time.Time `json:"last_active"`
	RequestStatus string    `json:"request_status,omitempty"`
}

type FriendRequest struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`

	// Denormalized sender info for rendering incoming requests
	SenderName   string `json:"sender_name,omitempty"`
	SenderAvatar string `json:"sender_avatar,omitempty"`
}

type ChatGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReplyRef is the denormalized snapshot of a quoted message, captured at
// send time so it stays displayable after the original is deleted.
type ReplyRef struct {
	ID         string `json:"id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

type ChatMessage struct {
	ID           string    `json:"id"`
	ChatID       string    `json:"chat_id"`
	SenderID     string    `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	SenderAvatar string    `json:"sender_avatar"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	IsRead       bool      `json:"is_read"`
	IsOwnMessage bool      `json:"is_own_message"`
	ReplyTo      *ReplyRef `json:"reply_to,omitempty"`
}
