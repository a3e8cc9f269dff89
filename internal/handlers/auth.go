package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/4xmen/whisper/internal/session"
	"github.com/4xmen/whisper/pkg/i18n"
)

type AuthHandler struct {
	sessions *session.Manager
}

func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token   string           `json:"token"`
	Session *session.Session `json:"session"`
}

// Register creates a new account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	if _, err := h.sessions.Register(req.Username, req.Email, req.Password, req.ConfirmPassword); err != nil {
		fail(c, err)
		return
	}

	sess, token, err := h.sessions.Login(req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, Session: sess})
}

// Login authenticates a user and returns a token with the session snapshot.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	sess, token, err := h.sessions.Login(req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, Session: sess})
}

// Logout tears the session down. Always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	h.sessions.Logout(userID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AuthMiddleware validates the JWT and requires a live session, so a token
// minted before a restart or logout forces a fresh sign-in.
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try to get token from Authorization header first
		authHeader := c.GetHeader("Authorization")
		token := ""

		if authHeader != "" {
			// Extract token from "Bearer <token>"
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				token = authHeader[7:]
			}
		}

		// If not in header, try query parameter (for WebSocket)
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.Notice("missing authorization token")})
			c.Abort()
			return
		}

		claims, err := h.sessions.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.Notice("invalid token")})
			c.Abort()
			return
		}

		if h.sessions.Get(claims.UserID) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.Notice("no active session")})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}
