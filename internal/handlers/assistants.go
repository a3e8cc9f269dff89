package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/4xmen/whisper/internal/assistant"
)

// AssistantHandler serves the persona catalog.
type AssistantHandler struct{}

func NewAssistantHandler() *AssistantHandler {
	return &AssistantHandler{}
}

// List returns every persona, archived ones included, so the client can
// render unavailable entries greyed out.
func (h *AssistantHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"assistants": assistant.Catalog()})
}
