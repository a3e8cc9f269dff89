package ws

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/4xmen/whisper/internal/store"
	"github.com/4xmen/whisper/pkg/i18n"
)

// Hub fans change-feed events out to connected websocket clients. One
// client per user id; a reconnect replaces the previous connection's slot.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan *Frame
	register   chan *Client
	unregister chan *Client
	db         *sql.DB
	feed       *store.Feed
	mu         sync.RWMutex
}

type Client struct {
	userID string
	conn   *websocket.Conn
	hub    *Hub
	send   chan *Frame
}

// Frame is the wire format pushed to clients.
type Frame struct {
	Type       string    `json:"type"` // "message", "message_update", "message_deleted", "presence", "friend_request", "typing"
	SenderID   string    `json:"sender_id,omitempty"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	Row        store.Row `json:"row,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin
		return true
	},
}

func NewHub(db *sql.DB, feed *store.Feed) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Frame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		db:         db,
		feed:       feed,
	}
}

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Run pumps registration and routing until the process exits. Feed
// subscriptions are translated into frames and routed like local ones.
func (h *Hub) Run() {
	h.watchFeed()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.userID]; ok {
				close(old.send)
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			log.Printf("User %s connected (total: %d)", client.userID, len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("User %s disconnected (total: %d)", client.userID, len(h.clients))

		case frame := <-h.broadcast:
			h.route(frame)
		}
	}
}

// watchFeed subscribes to the tables clients care about and feeds the
// broadcast loop.
func (h *Hub) watchFeed() {
	subscriptions := []struct {
		table     string
		event     string
		frameType func(event string) string
	}{
		{"messages", store.EventAll, messageFrameType},
		{"friend_requests", store.EventAll, func(string) string { return "friend_request" }},
		{"profiles", store.EventUpdate, func(string) string { return "presence" }},
	}

	for _, s := range subscriptions {
		sub, err := h.feed.Subscribe(s.table, s.event, "")
		if err != nil {
			log.Printf("Feed subscribe failed for %s: %v", s.table, err)
			continue
		}
		frameType := s.frameType
		go func() {
			for ev := range sub.C {
				h.broadcast <- &Frame{
					Type:       frameType(ev.Type),
					SenderID:   rowString(ev.Row, "sender_id"),
					ReceiverID: rowString(ev.Row, "receiver_id"),
					Row:        ev.Row,
				}
			}
		}()
	}
}

func messageFrameType(event string) string {
	switch event {
	case store.EventInsert:
		return "message"
	case store.EventDelete:
		return "message_deleted"
	default:
		return "message_update"
	}
}

func rowString(row store.Row, key string) string {
	if row == nil {
		return ""
	}
	s, _ := row[key].(string)
	return s
}

func (h *Hub) route(frame *Frame) {
	switch frame.Type {
	case "presence":
		// Status changes go to everyone connected; clients filter by
		// their own contact list.
		h.mu.RLock()
		for _, client := range h.clients {
			if client.userID == rowString(frame.Row, "id") {
				continue
			}
			h.offer(client, frame)
		}
		h.mu.RUnlock()

	case "friend_request":
		h.sendTo(frame.ReceiverID, frame)
		h.sendTo(frame.SenderID, frame)

	case "typing":
		// One-way, never echoed back to the typist.
		if members := h.groupMembers(frame.ReceiverID); len(members) > 0 {
			for _, member := range members {
				if member != frame.SenderID {
					h.sendTo(member, frame)
				}
			}
			return
		}
		h.sendTo(frame.ReceiverID, frame)

	default:
		// Message traffic. A receiver id that names a group fans out to
		// its members; otherwise it is a direct or assistant chat.
		members := h.groupMembers(frame.ReceiverID)
		if len(members) > 0 {
			for _, member := range members {
				if member != frame.SenderID {
					h.sendTo(member, frame)
				}
			}
			h.sendTo(frame.SenderID, frame)
			return
		}
		h.sendTo(frame.ReceiverID, frame)
		// Echo to the sender so other sessions of the same account stay
		// in sync.
		if frame.SenderID != frame.ReceiverID {
			h.sendTo(frame.SenderID, frame)
		}
	}
}

func (h *Hub) sendTo(userID string, frame *Frame) {
	if userID == "" {
		return
	}
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.offer(client, frame)
}

func (h *Hub) offer(client *Client, frame *Frame) {
	select {
	case client.send <- frame:
	default:
		log.Printf("Frame channel full for user %s", client.userID)
	}
}

func (h *Hub) groupMembers(groupID string) []string {
	if groupID == "" {
		return nil
	}
	rows, err := h.db.Query("SELECT user_id FROM group_members WHERE group_id = ?", groupID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			members = append(members, id)
		}
	}
	return members
}

func (h *Hub) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.Notice("unauthorized")})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Upgrade error: %v", err)
		return
	}

	client := &Client{
		userID: userID.(string),
		conn:   conn,
		hub:    h,
		send:   make(chan *Frame, 256),
	}

	h.register <- client

	go client.readPump()
	go client.writePump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		eventType, ok := event["type"].(string)
		if !ok {
			continue
		}

		switch eventType {
		case "typing":
			c.handleTypingEvent(event)
		}
	}
}

// handleTypingEvent forwards a transient typing indicator to the peer. It
// is never persisted.
func (c *Client) handleTypingEvent(event map[string]interface{}) {
	receiverID, ok := event["receiver_id"].(string)
	if !ok || receiverID == "" {
		return
	}

	c.hub.broadcast <- &Frame{
		Type:       "typing",
		SenderID:   c.userID,
		ReceiverID: receiverID,
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			data, _ := json.Marshal(frame)
			w.Write(data)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
