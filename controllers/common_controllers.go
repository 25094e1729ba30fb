package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"chatbot/models"

	"go.uber.org/zap"
)

// IndexHandler serves the landing page with the chat client
func (c *Controller) IndexHandler(w http.ResponseWriter, r *http.Request) {
	c.renderTemplate(w, "index.html", nil)
}

// HealthHandler provides a health check endpoint
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":          "healthy",
		"component":       "keyword-chatbot",
		"endpoints":       []string{"/", "/chat-history", "/health", "/ws"},
		"uptime":          time.Since(c.startTime).String(),
		"rules":           c.router.RuleCount(),
		"active_sessions": c.router.ActiveSessions(),
		"open_sockets":    c.hub.Count(),
		"discord":         c.discordService.GetStatus(),
	}

	c.writeJSON(w, http.StatusOK, health)
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.logger.Warn("Error encoding response", zap.Error(err))
	}
}

func (c *Controller) writeError(w http.ResponseWriter, status int, message string) {
	c.writeJSON(w, status, models.BaseResponse{
		Status:    models.StatusError,
		Error:     message,
		Timestamp: time.Now(),
	})
}
