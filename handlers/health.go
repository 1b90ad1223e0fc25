package handlers

import (
	"net/http"

	"bloomify-insights/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest dependency health snapshot.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	state := "ok"
	if !status.CheckedAt.IsZero() && !status.Healthy() {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "message": "Hi, I'm Bloomify Insights", "dependencies": status})
}
