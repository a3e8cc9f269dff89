package session

import (
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/internal/store"
)

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Register creates a profile. The new user is not signed in; callers follow
// up with Login.
func (m *Manager) Register(username, email, password, confirm string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < 3 {
		return "", errs.Validation("username too short")
	}
	if !emailPattern.MatchString(email) {
		return "", errs.Validation("invalid email")
	}
	if len(password) < 6 {
		return "", errs.Validation("password too short")
	}
	if password != confirm {
		return "", errs.Validation("passwords do not match")
	}

	var exists bool
	err := m.db.QueryRow("SELECT EXISTS(SELECT 1 FROM profiles WHERE email = ?)", email).Scan(&exists)
	if err != nil {
		return "", errs.Remote("failed to query profile", err)
	}
	if exists {
		return "", errs.Auth("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.NewString()
	_, err = m.db.Exec(
		"INSERT INTO profiles (id, username, email, password_hash, status) VALUES (?, ?, ?, ?, ?)",
		id, username, email, string(hash), "offline",
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", errs.Auth("email already registered")
		}
		return "", errs.Remote("failed to create profile", err)
	}

	m.feed.Publish("profiles", store.EventInsert, store.Row{
		"id": id, "username": username, "email": email,
	})

	return id, nil
}

// Login verifies credentials, marks the user online, and builds the session
// snapshot. Concurrent logins for the same user are not guarded; the last
// one wins.
func (m *Manager) Login(email, password string) (*Session, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id, username, hash string
	err := m.db.QueryRow(
		"SELECT id, username, password_hash FROM profiles WHERE email = ?", email,
	).Scan(&id, &username, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", errs.Auth("invalid email or password")
		}
		return nil, "", errs.Remote("failed to query profile", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, "", errs.Auth("invalid email or password")
	}

	if _, err := m.db.Exec("UPDATE profiles SET status = 'online' WHERE id = ?", id); err != nil {
		log.Printf("session: failed to mark %s online: %v", username, err)
	}

	sess, err := m.loadSession(id)
	if err != nil {
		return nil, "", err
	}

	token, err := m.GenerateToken(id, username)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.publishPresence(id, "online")

	return sess, token, nil
}

// Logout clears local state unconditionally. The remote status flip is
// best-effort; a store failure never keeps a user signed in.
func (m *Manager) Logout(userID string) {
	if _, err := m.db.Exec("UPDATE profiles SET status = 'offline' WHERE id = ?", userID); err != nil {
		log.Printf("session: failed to mark %s offline: %v", userID, err)
	}

	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()

	m.publishPresence(userID, "offline")
}

// publishPresence announces a status flip on the change feed.
func (m *Manager) publishPresence(userID, status string) {
	m.feed.Publish("profiles", store.EventUpdate, store.Row{
		"id": userID, "status": status,
	})
}

func (m *Manager) GenerateToken(userID, username string) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil {
		return nil, errs.Auth("invalid token")
	}
	if !token.Valid {
		return nil, errs.Auth("invalid token")
	}
	return claims, nil
}
