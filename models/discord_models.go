package models

// DiscordConfig represents Discord transport configuration
type DiscordConfig struct {
	Token          string `json:"-"`
	CommandPrefix  string `json:"command_prefix"`
	FallbackNotice string `json:"fallback_notice"`
	Enabled        bool   `json:"enabled"`
}

// DiscordUser represents a Discord user
type DiscordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}
