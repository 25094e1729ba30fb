package controllers

import (
	"net/http"
	"strings"
	"time"

	"chatbot/models"
)

// greetingHistory is returned when no connection is specified
var greetingHistory = []models.HistoryEntry{
	{Speaker: models.SpeakerBot, Message: "Hi there! How can I help you?"},
}

// ChatHistoryHandler returns the conversation history of a live connection.
// Without a connection_id it returns the greeting shown to new visitors.
func (c *Controller) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	connectionID := strings.TrimSpace(r.URL.Query().Get("connection_id"))

	if connectionID == "" {
		c.writeJSON(w, http.StatusOK, models.ChatHistoryResponse{
			BaseResponse: models.BaseResponse{Status: models.StatusSuccess, Timestamp: time.Now()},
			History:      greetingHistory,
		})
		return
	}

	history, ok := c.router.History(connectionID)
	if !ok {
		c.writeError(w, http.StatusNotFound, "Unknown connection")
		return
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}

	c.writeJSON(w, http.StatusOK, models.ChatHistoryResponse{
		BaseResponse: models.BaseResponse{Status: models.StatusSuccess, Timestamp: time.Now()},
		ConnectionID: connectionID,
		History:      history,
	})
}
