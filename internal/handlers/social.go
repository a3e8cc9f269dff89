package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/internal/session"
	"github.com/4xmen/whisper/pkg/i18n"
)

// SocialHandler serves the session snapshot and every social-graph
// mutation: contacts, friend requests, groups, and profile fields.
type SocialHandler struct {
	sessions *session.Manager
}

func NewSocialHandler(sessions *session.Manager) *SocialHandler {
	return &SocialHandler{sessions: sessions}
}

// GetSession returns the caller's full snapshot.
func (h *SocialHandler) GetSession(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	snap, ok := h.sessions.Snapshot(userID)
	if !ok {
		fail(c, errs.Auth("no active session"))
		return
	}
	c.JSON(http.StatusOK, snap)
}

type AddContactRequest struct {
	Email string `json:"email" binding:"required"`
}

// AddContact sends a friend request to the user matching the email or
// username prefix.
func (h *SocialHandler) AddContact(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	contact, err := h.sessions.AddContact(userID, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// RemoveContact drops the relationship in both directions.
func (h *SocialHandler) RemoveContact(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.sessions.RemoveContact(userID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type RespondRequest struct {
	Accept bool `json:"accept"`
}

// RespondToRequest accepts or rejects a pending friend request.
func (h *SocialHandler) RespondToRequest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	requestID := c.Param("id")
	var err error
	if req.Accept {
		err = h.sessions.AcceptFriendRequest(userID, requestID)
	} else {
		err = h.sessions.RejectFriendRequest(userID, requestID)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SearchContacts filters the snapshot's contact list by name or email.
func (h *SocialHandler) SearchContacts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	snap, ok := h.sessions.Snapshot(userID)
	if !ok {
		fail(c, errs.Auth("no active session"))
		return
	}

	matches := session.FilterContacts(snap.Contacts, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"contacts": matches})
}

type CreateGroupRequest struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members"`
}

// CreateGroup creates a group with the caller as creator and member.
func (h *SocialHandler) CreateGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	group, err := h.sessions.CreateGroup(userID, req.Name, req.Members)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// LeaveGroup removes the caller from a group, transferring or deleting it
// as membership dictates.
func (h *SocialHandler) LeaveGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.sessions.LeaveGroup(userID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AddGroupMember lets the creator add one of their contacts.
func (h *SocialHandler) AddGroupMember(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	if err := h.sessions.AddToGroup(userID, c.Param("id"), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

type StatusRequest struct {
	Status  string  `json:"status" binding:"required"`
	Message *string `json:"message"`
}

// UpdateStatus sets presence and the optional status message.
func (h *SocialHandler) UpdateStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	if err := h.sessions.UpdateStatus(userID, req.Status, req.Message); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateProfile applies a partial profile edit.
func (h *SocialHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req session.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	if err := h.sessions.UpdateProfile(userID, req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type AvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// UpdateAvatar is the single-field path the avatar picker uses.
func (h *SocialHandler) UpdateAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid request")})
		return
	}

	if err := h.sessions.UpdateAvatar(userID, req.Avatar); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
