package services

import (
	"fmt"
	"strings"
	"time"

	"chatbot/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	// Discord has a 2000 character limit per message
	discordMessageLimit = 2000
	discordChunkSize    = 1900

	defaultCommandPrefix  = "!chat "
	defaultFallbackNotice = "I'm having trouble understanding you. Let me get a human to help."
	resetCommand          = "reset"
)

// DiscordService relays prefixed Discord messages through the Router
type DiscordService struct {
	session        *discordgo.Session
	router         *Router
	logger         *zap.Logger
	commandPrefix  string
	fallbackNotice string
	enabled        bool
	startTime      time.Time
}

// NewDiscordService creates a new Discord service instance
func NewDiscordService(router *Router, cfg models.DiscordConfig, logger *zap.Logger) *DiscordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = defaultCommandPrefix
	}
	if cfg.FallbackNotice == "" {
		cfg.FallbackNotice = defaultFallbackNotice
	}

	service := &DiscordService{
		router:         router,
		logger:         logger,
		commandPrefix:  cfg.CommandPrefix,
		fallbackNotice: cfg.FallbackNotice,
		startTime:      time.Now(),
	}

	if cfg.Token == "" {
		logger.Info("Discord bot disabled: DISCORD_BOT_TOKEN not set")
		return service
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		logger.Error("Error creating Discord session", zap.Error(err))
		return service
	}

	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		logger.Info("Discord bot is online",
			zap.String("username", event.User.Username),
			zap.Int("guilds", len(event.Guilds)))
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	service.enabled = true
	logger.Info("Discord service initialized", zap.String("prefix", cfg.CommandPrefix))

	return service
}

// Start opens the Discord gateway connection
func (d *DiscordService) Start() error {
	if !d.enabled {
		return fmt.Errorf("Discord service not enabled (missing bot token)")
	}

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening Discord connection: %w", err)
	}

	d.logger.Info("Discord bot started", zap.String("prefix", d.commandPrefix))
	return nil
}

// Stop closes the Discord bot connection
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// messageCreate handles incoming Discord messages
func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	replies := d.handleCommand(m.Author.ID, m.ChannelID, m.Content)
	for _, reply := range replies {
		d.sendMessage(s, m.ChannelID, reply)
	}
}

// handleCommand turns one Discord message into the texts to post back to its channel
func (d *DiscordService) handleCommand(authorID, channelID, content string) []string {
	if !strings.HasPrefix(content, d.commandPrefix) {
		return nil
	}

	chatMessage := strings.TrimSpace(content[len(d.commandPrefix):])
	if chatMessage == "" {
		return []string{fmt.Sprintf("Please provide a message after `%s`", strings.TrimSpace(d.commandPrefix))}
	}

	connectionID := DiscordConnectionID(authorID, channelID)

	if strings.EqualFold(chatMessage, resetCommand) {
		d.router.Close(connectionID)
		d.logger.Info("Discord conversation reset", zap.String("connection_id", connectionID))
		return []string{"Conversation reset."}
	}

	d.logger.Info("Received Discord message", zap.String("connection_id", connectionID), zap.String("message", chatMessage))

	action := d.router.Route(connectionID, chatMessage)
	if action.Kind == models.ActionFallback {
		d.logger.Info("Sending hard fallback notice", zap.String("connection_id", connectionID))
		return []string{d.fallbackNotice}
	}
	return []string{action.Text}
}

// DiscordConnectionID is the session key for a user in a channel
func DiscordConnectionID(authorID, channelID string) string {
	return fmt.Sprintf("discord_%s_%s", authorID, channelID)
}

// sendMessage sends a message to Discord, handling length limits
func (d *DiscordService) sendMessage(s *discordgo.Session, channelID, message string) {
	if len(message) <= discordMessageLimit {
		if _, err := s.ChannelMessageSend(channelID, message); err != nil {
			d.logger.Error("Error sending Discord message", zap.Error(err))
		}
		return
	}

	chunks := splitMessage(message, discordChunkSize)
	for i, chunk := range chunks {
		if i > 0 {
			chunk = fmt.Sprintf("...continued:\n%s", chunk)
		}
		if i < len(chunks)-1 {
			chunk = chunk + "\n..."
		}

		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			d.logger.Error("Error sending Discord message chunk", zap.Int("chunk", i), zap.Error(err))
		}

		// Small delay between messages to avoid rate limiting
		time.Sleep(200 * time.Millisecond)
	}
}

// splitMessage splits a message into chunks respecting word boundaries
func splitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		splitIndex := maxLength
		if spaceIndex := strings.LastIndex(message[:maxLength], " "); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimPrefix(message[splitIndex:], " ")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}

	return chunks
}

// IsEnabled returns whether the Discord service is enabled
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// GetStatus returns the current status of the Discord service
func (d *DiscordService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":        d.enabled,
		"command_prefix": d.commandPrefix,
		"uptime":         time.Since(d.startTime).String(),
	}

	if d.enabled && d.session != nil && d.session.State != nil && d.session.State.User != nil {
		status["status"] = "connected"
		status["user"] = models.DiscordUser{
			ID:       d.session.State.User.ID,
			Username: d.session.State.User.Username,
			Bot:      d.session.State.User.Bot,
		}
		status["guilds"] = len(d.session.State.Guilds)
	} else if d.enabled {
		status["status"] = "initialized_not_started"
	} else {
		status["status"] = "disabled"
		status["note"] = "Set DISCORD_BOT_TOKEN environment variable to enable"
	}

	return status
}
