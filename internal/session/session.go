// Package session owns the authenticated user's identity and social graph:
// the current profile, contacts, friend requests, and chat groups. All
// mutations go through the store first and only mirror into the in-memory
// snapshot after the write succeeds, so a failed remote call never leaves
// local state ahead of the database.
package session

import (
	"database/sql"
	"sync"
	"time"

	"github.com/4xmen/whisper/internal/models"
	"github.com/4xmen/whisper/internal/store"
)

// Manager is the process-wide session and social graph manager. Sessions are
// keyed by user id; each holds the snapshot the presentation layer renders.
type Manager struct {
	db        *sql.DB
	feed      *store.Feed
	jwtSecret string
	tokenTTL  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Session is one user's in-memory state. It is rebuilt from the store on
// login and mutated only by Manager operations after a successful write.
type Session struct {
	User     models.User            `json:"user"`
	Contacts []models.Contact       `json:"contacts"`
	Requests []models.FriendRequest `json:"requests"`
	Groups   []models.ChatGroup     `json:"groups"`
}

func NewManager(db *sql.DB, feed *store.Feed, jwtSecret string) *Manager {
	return NewManagerWithTokenTTL(db, feed, jwtSecret, 24*time.Hour)
}

func NewManagerWithTokenTTL(db *sql.DB, feed *store.Feed, jwtSecret string, tokenTTL time.Duration) *Manager {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Manager{
		db:        db,
		feed:      feed,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		sessions:  make(map[string]*Session),
	}
}

// Get returns the session snapshot for userID, or nil when signed out.
func (m *Manager) Get(userID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

// Snapshot returns a copy of the session safe to hand to a renderer while
// the manager keeps mutating the original.
func (m *Manager) Snapshot(userID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	out := Session{User: sess.User}
	out.Contacts = append([]models.Contact(nil), sess.Contacts...)
	out.Requests = append([]models.FriendRequest(nil), sess.Requests...)
	out.Groups = append([]models.ChatGroup(nil), sess.Groups...)
	return out, true
}
