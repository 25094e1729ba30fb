package services

import (
	"strings"
	"sync"

	"chatbot/models"

	"go.uber.org/zap"
)

const (
	// MaxFailures is the number of consecutive unmatched messages that triggers a hard fallback
	MaxFailures = 3

	// DefaultResponse is sent for an unmatched message below the fallback threshold
	DefaultResponse = "I don't understand."
)

// Router owns every active session and decides the outbound action for each inbound message.
// It is shared by all transports; one mutex makes each Route a single atomic update.
type Router struct {
	rules    *RuleStore
	logger   *zap.Logger
	mu       sync.Mutex
	sessions map[string]*models.Session
}

// NewRouter creates a router over an immutable rule store
func NewRouter(rules *RuleStore, logger *zap.Logger) *Router {
	if rules == nil {
		rules = &RuleStore{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		rules:    rules,
		logger:   logger,
		sessions: make(map[string]*models.Session),
	}
}

// Open creates the session for connectionID if it does not exist yet.
// It reports whether a new session was created.
func (r *Router) Open(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connectionID]; exists {
		return false
	}
	r.sessions[connectionID] = newSession(connectionID)
	return true
}

// Route handles one inbound message and returns the action to emit to the same connection
func (r *Router) Route(connectionID, rawMessage string) models.Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[connectionID]
	if !exists {
		session = newSession(connectionID)
		r.sessions[connectionID] = session
	}

	lowerMsg := strings.ToLower(rawMessage)
	session.History = append(session.History, models.HistoryEntry{Speaker: models.SpeakerUser, Message: rawMessage})

	rule, matched := r.rules.Match(lowerMsg)
	if matched {
		session.ConsecutiveFailures = 0
		session.History = append(session.History, models.HistoryEntry{Speaker: models.SpeakerBot, Message: rule.BotResponse})
		r.logger.Debug("Rule matched", zap.String("connection_id", connectionID), zap.String("response", rule.BotResponse))
		return models.Reply(rule.BotResponse)
	}

	// The counter is only reset by a match, so every miss after the threshold falls back again.
	session.ConsecutiveFailures++
	if session.ConsecutiveFailures >= MaxFailures {
		r.logger.Info("Hard fallback triggered",
			zap.String("connection_id", connectionID),
			zap.Int("consecutive_failures", session.ConsecutiveFailures))
		return models.Fallback()
	}

	session.History = append(session.History, models.HistoryEntry{Speaker: models.SpeakerBot, Message: DefaultResponse})
	return models.Reply(DefaultResponse)
}

// Close discards the session for connectionID. Unknown ids are ignored.
func (r *Router) Close(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, connectionID)
}

// snapshot returns a copy of the session for connectionID
func (r *Router) snapshot(connectionID string) (models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[connectionID]
	if !exists {
		return models.Session{}, false
	}

	copied := *session
	copied.History = append([]models.HistoryEntry(nil), session.History...)
	return copied, true
}

// History returns a copy of the conversation history for connectionID
func (r *Router) History(connectionID string) ([]models.HistoryEntry, bool) {
	session, exists := r.snapshot(connectionID)
	if !exists {
		return nil, false
	}
	return session.History, true
}

// ActiveSessions returns the number of live sessions
func (r *Router) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// RuleCount returns the number of rules the router matches against
func (r *Router) RuleCount() int {
	return r.rules.Len()
}

func newSession(connectionID string) *models.Session {
	return &models.Session{
		ConnectionID: connectionID,
		History:      []models.HistoryEntry{},
	}
}
