package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/4xmen/whisper/internal/push"
	"github.com/4xmen/whisper/pkg/i18n"
)

// PushHandler manages web push subscriptions. All routes degrade to no-ops
// when the notifier is nil (no VAPID keys configured).
type PushHandler struct {
	notifier *push.Notifier
}

func NewPushHandler(notifier *push.Notifier) *PushHandler {
	return &PushHandler{notifier: notifier}
}

// VAPIDKey exposes the public key the browser needs to subscribe.
func (h *PushHandler) VAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"key": h.notifier.VAPIDPublicKey()})
}

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// Subscribe stores a browser push subscription for the caller.
func (h *PushHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid push subscription")})
		return
	}

	err := h.notifier.Save(userID, push.Subscription{
		Endpoint:  req.Endpoint,
		KeyP256dh: req.Keys.P256dh,
		KeyAuth:   req.Keys.Auth,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": i18n.Notice("invalid push subscription")})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// Unsubscribe revokes a subscription.
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.Notice("invalid push subscription")})
		return
	}

	if err := h.notifier.Revoke(req.Endpoint); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": i18n.Notice("invalid push subscription")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
