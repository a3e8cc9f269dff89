package ws

import (
	"database/sql"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/4xmen/whisper/internal/store"
)

var testDBCounter int

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:wstest%d?mode=memory&cache=shared", testDBCounter)
	db, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, u := range []string{"alice-id", "bob-id", "carol-id"} {
		name := strings.TrimSuffix(u, "-id")
		if _, err := db.Conn().Exec(
			"INSERT INTO profiles (id, username, email, password_hash) VALUES (?, ?, ?, 'x')",
			u, name, name+"@example.com",
		); err != nil {
			t.Fatalf("Failed to seed profile %s: %v", name, err)
		}
	}

	return db.Conn()
}

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		userID: userID,
		hub:    hub,
		send:   make(chan *Frame, 256),
	}
}

func TestHubCreation(t *testing.T) {
	db := setupTestDB(t)

	hub := NewHub(db, store.NewFeed())
	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	db := setupTestDB(t)

	hub := NewHub(db, store.NewFeed())
	go hub.Run()

	time.Sleep(10 * time.Millisecond)

	client := newTestClient(hub, "alice-id")
	hub.register <- client

	time.Sleep(10 * time.Millisecond)

	if !hub.IsUserOnline("alice-id") {
		t.Error("Client was not registered")
	}

	hub.unregister <- client

	time.Sleep(10 * time.Millisecond)

	if hub.IsUserOnline("alice-id") {
		t.Error("Client was not unregistered")
	}
}

func TestFeedMessageReachesBothSides(t *testing.T) {
	db := setupTestDB(t)
	feed := store.NewFeed()

	hub := NewHub(db, feed)
	go hub.Run()

	time.Sleep(10 * time.Millisecond)

	alice := newTestClient(hub, "alice-id")
	bob := newTestClient(hub, "bob-id")
	hub.register <- alice
	hub.register <- bob

	time.Sleep(10 * time.Millisecond)

	feed.Publish("messages", store.EventInsert, store.Row{
		"id":          "m1",
		"sender_id":   "alice-id",
		"receiver_id": "bob-id",
		"content":     "Hello!",
	})

	time.Sleep(50 * time.Millisecond)

	select {
	case frame := <-bob.send:
		if frame.Type != "message" {
			t.Errorf("Expected type 'message', got '%s'", frame.Type)
		}
		if got, _ := frame.Row["content"].(string); got != "Hello!" {
			t.Errorf("Expected 'Hello!', got '%s'", got)
		}
	default:
		t.Error("Receiver did not get the message")
	}

	select {
	case frame := <-alice.send:
		if frame.Type != "message" {
			t.Errorf("Sender echo had type '%s'", frame.Type)
		}
	default:
		t.Error("Sender did not get the echo")
	}
}

func TestGroupMessageFansOutToMembers(t *testing.T) {
	db := setupTestDB(t)
	feed := store.NewFeed()

	if _, err := db.Exec("INSERT INTO groups (id, name, created_by) VALUES ('g1', 'team', 'alice-id')"); err != nil {
		t.Fatalf("Failed to seed group: %v", err)
	}
	for _, member := range []string{"alice-id", "bob-id", "carol-id"} {
		if _, err := db.Exec("INSERT INTO group_members (group_id, user_id) VALUES ('g1', ?)", member); err != nil {
			t.Fatalf("Failed to seed member %s: %v", member, err)
		}
	}

	hub := NewHub(db, feed)
	go hub.Run()

	time.Sleep(10 * time.Millisecond)

	alice := newTestClient(hub, "alice-id")
	bob := newTestClient(hub, "bob-id")
	carol := newTestClient(hub, "carol-id")
	hub.register <- alice
	hub.register <- bob
	hub.register <- carol

	time.Sleep(10 * time.Millisecond)

	feed.Publish("messages", store.EventInsert, store.Row{
		"id":          "m1",
		"sender_id":   "alice-id",
		"receiver_id": "g1",
		"content":     "hi all",
	})

	time.Sleep(50 * time.Millisecond)

	for name, client := range map[string]*Client{"bob": bob, "carol": carol, "alice": alice} {
		select {
		case frame := <-client.send:
			if frame.Type != "message" {
				t.Errorf("%s got frame type '%s'", name, frame.Type)
			}
		default:
			t.Errorf("%s did not receive the group message", name)
		}
	}
}

func TestMessageDeleteFrame(t *testing.T) {
	db := setupTestDB(t)
	feed := store.NewFeed()

	hub := NewHub(db, feed)
	go hub.Run()

	time.Sleep(10 * time.Millisecond)

	bob := newTestClient(hub, "bob-id")
	hub.register <- bob

	time.Sleep(10 * time.Millisecond)

	feed.Publish("messages", store.EventDelete, store.Row{
		"id":          "m1",
		"sender_id":   "alice-id",
		"receiver_id": "bob-id",
	})

	time.Sleep(50 * time.Millisecond)

	select {
	case frame := <-bob.send:
		if frame.Type != "message_deleted" {
			t.Errorf("Expected type 'message_deleted', got '%s'", frame.Type)
		}
	default:
		t.Error("Receiver did not get the delete frame")
	}
}

func TestPresenceBroadcast(t *testing.T) {
	db := setupTestDB(t)
	feed := store.NewFeed()

	hub := NewHub(db, feed)
	go hub.Run()

	time.Sleep(10 * time.Millisecond)

	alice := newTestClient(hub, "alice-id")
	bob := newTestClient(hub, "bob-id")
	hub.register <- alice
	hub.register <- bob

	time.Sleep(10 * time.Millisecond)

	feed.Publish("profiles", store.EventUpdate, store.Row{
		"id":     "alice-id",
		"status": "away",
	})

	time.Sleep(50 * time.Millisecond)

	select {
	case frame := <-bob.send:
		if frame.Type != "presence" {
			t.Errorf("Expected type 'presence', got '%s'", frame.Type)
		}
		if got, _ := frame.Row["status"].(string); got != "away" {
			t.Errorf("Expected status 'away', got '%s'", got)
		}
	default:
		t.Error("Bob did not receive the presence frame")
	}

	// The user whose status changed does not get their own presence echo.
	select {
	case frame := <-alice.send:
		t.Errorf("Alice received her own presence frame: %+v", frame)
	default:
	}
}

func TestTypingForwarding(t *testing.T) {
	db := setupTestDB(t)

	hub := NewHub(db, store.NewFeed())
	go hub.Run()

	time.Sleep(10 * time.Millisecond)

	alice := newTestClient(hub, "alice-id")
	bob := newTestClient(hub, "bob-id")
	hub.register <- alice
	hub.register <- bob

	time.Sleep(10 * time.Millisecond)

	alice.handleTypingEvent(map[string]interface{}{
		"type":        "typing",
		"receiver_id": "bob-id",
	})

	time.Sleep(50 * time.Millisecond)

	select {
	case frame := <-bob.send:
		if frame.Type != "typing" {
			t.Errorf("Expected type 'typing', got '%s'", frame.Type)
		}
		if frame.SenderID != "alice-id" {
			t.Errorf("Expected sender alice-id, got '%s'", frame.SenderID)
		}
	default:
		t.Error("Bob did not receive the typing frame")
	}

	select {
	case <-alice.send:
		t.Error("Typist received their own typing frame")
	default:
	}
}

func TestWebSocketIntegration(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)

	hub := NewHub(db, store.NewFeed())
	go hub.Run()

	router := gin.New()

	// Simple middleware that sets user_id for testing
	router.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", "alice-id")
		hub.HandleWebSocket(c)
	})

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	if !hub.IsUserOnline("alice-id") {
		t.Error("WebSocket client was not registered in hub")
	}
}
