package controllers

import (
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"chatbot/models"
	"chatbot/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller wires the HTTP surface to the chat router and its transports
type Controller struct {
	router         *services.Router
	hub            *services.SocketHub
	discordService *services.DiscordService
	logger         *zap.Logger
	viewsDir       string
	startTime      time.Time
}

// NewController creates a new controller instance over a loaded rule store
func NewController(rules *services.RuleStore, discordCfg models.DiscordConfig, viewsDir string, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := services.NewRouter(rules, logger.Named("router"))

	return &Controller{
		router:         router,
		hub:            services.NewSocketHub(router, logger.Named("socket")),
		discordService: services.NewDiscordService(router, discordCfg, logger.Named("discord")),
		logger:         logger,
		viewsDir:       viewsDir,
		startTime:      time.Now(),
	}
}

// RegisterRoutes configures all endpoints on r
func (c *Controller) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", c.IndexHandler).Methods(http.MethodGet)
	r.HandleFunc("/chat-history", c.ChatHistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", c.HealthHandler).Methods(http.MethodGet)
	r.Handle("/ws", c.hub).Methods(http.MethodGet)
}

// Router returns the session router shared by all transports
func (c *Controller) Router() *services.Router {
	return c.router
}

// StartServices starts all background services (Discord bot, etc.)
func (c *Controller) StartServices(enableDiscord bool) error {
	switch {
	case enableDiscord && c.discordService.IsEnabled():
		if err := c.discordService.Start(); err != nil {
			c.logger.Error("Failed to start Discord service", zap.Error(err))
			return err
		}
	case enableDiscord:
		c.logger.Warn("Discord service requested but not properly configured (missing DISCORD_BOT_TOKEN)")
	default:
		c.logger.Info("Discord service disabled")
	}

	return nil
}

// StopServices closes every WebSocket connection and stops the Discord bot
func (c *Controller) StopServices() error {
	c.hub.CloseAll()
	if c.discordService != nil {
		return c.discordService.Stop()
	}
	return nil
}

// renderTemplate renders an HTML template from the views directory with data
func (c *Controller) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	templatePath := filepath.Join(c.viewsDir, name)

	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		c.logger.Error("Error parsing template", zap.String("template", templatePath), zap.Error(err))
		http.Error(w, "Template parsing error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error("Error executing template", zap.String("template", templatePath), zap.Error(err))
	}
}
