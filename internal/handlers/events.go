package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradorr/api/internal/middleware"
)

// StreamEvents pushes the user's session/entitlement events over SSE so
// every open tab converges without polling. The subscription is released
// when the client disconnects.
func (h HandlerSet) StreamEvents(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ch, release := h.bus.Subscribe(c.Request.Context(), user.ID)
	defer release()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
