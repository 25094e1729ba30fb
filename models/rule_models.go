package models

// Rule is one matchable intent loaded from the rule file.
type Rule struct {
	TriggerPhrases []string `json:"user_input" yaml:"user_input"`
	RequiredWords  []string `json:"required_words" yaml:"required_words"`
	BotResponse    string   `json:"bot_response" yaml:"bot_response"`
}
