package handlers

import (
	"io"
	"net/http"
	"time"

	"bloomify-insights/services/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamHandler relays live dashboard updates as server-sent events.
type StreamHandler struct {
	Broadcaster realtime.Broadcaster
	KeepAlive   time.Duration
}

func NewStreamHandler(b realtime.Broadcaster) *StreamHandler {
	return &StreamHandler{Broadcaster: b, KeepAlive: 25 * time.Second}
}

// StreamDashboardHandler streams "dashboard" events for one provider.
func (h *StreamHandler) StreamDashboardHandler(c *gin.Context) {
	logger := getLogger(c)
	providerID := c.Param("id")
	if h.Broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime updates are disabled"})
		return
	}

	updates, stop, err := h.Broadcaster.Follow(c.Request.Context(), providerID)
	if err != nil {
		logger.Error("Failed to follow dashboard updates", zap.String("providerID", providerID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to subscribe to updates"})
		return
	}
	defer stop()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	logger.Info("Dashboard stream opened", zap.String("providerID", providerID))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("dashboard", string(msg))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
	logger.Info("Dashboard stream closed", zap.String("providerID", providerID))
}
