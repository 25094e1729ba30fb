package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"chatbot/models"
)

// Defaults used when neither flags nor environment provide a value
const (
	DefaultPort      = "3000"
	DefaultRulesPath = "botResponses.json"
	DefaultViewsDir  = "views"
)

// Config is the resolved process configuration
type Config struct {
	Port          string
	RulesPath     string
	ViewsDir      string
	EnableDiscord bool
	Discord       models.DiscordConfig
}

// ConfigFromEnv reads the configuration from environment variables
func ConfigFromEnv() Config {
	return Config{
		Port:          getEnv("PORT", DefaultPort),
		RulesPath:     getEnv("RULES_PATH", DefaultRulesPath),
		ViewsDir:      getEnv("VIEWS_DIR", DefaultViewsDir),
		EnableDiscord: getEnvBool("ENABLE_DISCORD", false),
		Discord: models.DiscordConfig{
			Token:          os.Getenv("DISCORD_BOT_TOKEN"),
			CommandPrefix:  os.Getenv("DISCORD_COMMAND_PREFIX"),
			FallbackNotice: os.Getenv("DISCORD_FALLBACK_NOTICE"),
			Enabled:        os.Getenv("DISCORD_BOT_TOKEN") != "",
		},
	}
}

// Validate checks the configuration before the server starts
func (c Config) Validate() error {
	if strings.TrimSpace(c.RulesPath) == "" {
		return errors.New("rules path is required")
	}

	port := strings.TrimPrefix(c.Port, ":")
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	return nil
}

// Addr returns the listen address for the configured port
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
