// Package handlers is the HTTP surface. Handlers stay thin: bind the
// request, call into the session manager or a conversation store, and map
// the error taxonomy onto status codes and user notices.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/pkg/i18n"
)

// fail writes the response for a categorized error. Uncategorized errors
// surface as 500s with a generic notice.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindAuth:
		status = http.StatusUnauthorized
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindConflict:
		status = http.StatusConflict
	case errs.KindAuthorization:
		status = http.StatusForbidden
	case errs.KindRemote:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": i18n.Notice(noticeKey(err))})
}

// noticeKey extracts the stable message key, dropping any wrapped cause so
// internals never leak into a response body.
func noticeKey(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}

// currentUser reads the user id the auth middleware stored on the context.
func currentUser(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.Notice("unauthorized")})
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.Notice("unauthorized")})
		return "", false
	}
	return id, true
}
