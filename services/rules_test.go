package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"chatbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRulesJSON = `[
  {"user_input": ["hello"], "required_words": [], "bot_response": "Hi!"},
  {"user_input": ["bye"], "required_words": ["see", "you"], "bot_response": "See ya!"}
]`

func testRuleStore(t *testing.T) *RuleStore {
	t.Helper()
	store, err := ParseRules([]byte(testRulesJSON))
	require.NoError(t, err)
	return store
}

func TestParseRulesJSON(t *testing.T) {
	store := testRuleStore(t)

	require.Equal(t, 2, store.Len())
	rules := store.rules
	assert.Equal(t, []string{"hello"}, rules[0].TriggerPhrases)
	assert.Empty(t, rules[0].RequiredWords)
	assert.Equal(t, "Hi!", rules[0].BotResponse)
	assert.Equal(t, []string{"see", "you"}, rules[1].RequiredWords)
	assert.Equal(t, "See ya!", rules[1].BotResponse)
}

func TestParseRulesJSONEscapes(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		triggers []string
		response string
	}{
		{
			name:     "escaped slash",
			data:     `[{"user_input":["a\/b"],"required_words":[],"bot_response":"see http:\/\/example.com"}]`,
			triggers: []string{"a/b"},
			response: "see http://example.com",
		},
		{
			name:     "unicode escape",
			data:     `[{"user_input":["caf\u00e9"],"required_words":[],"bot_response":"Caf\u00e9 opens at 9"}]`,
			triggers: []string{"caf\u00e9"},
			response: "Caf\u00e9 opens at 9",
		},
		{
			name:     "surrogate pair",
			data:     `[{"user_input":["smile"],"required_words":[],"bot_response":"smile \ud83d\ude00"}]`,
			triggers: []string{"smile"},
			response: "smile \U0001F600",
		},
		{
			name:     "escaped quote",
			data:     `[{"user_input":["say \"hi\""],"required_words":[],"bot_response":"I said \"hi\""}]`,
			triggers: []string{`say "hi"`},
			response: `I said "hi"`,
		},
		{
			name:     "uppercase escape is lowercased",
			data:     `[{"user_input":["\u0048ELLO"],"required_words":["\u0057ORLD"],"bot_response":"ok"}]`,
			triggers: []string{"hello"},
			response: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := ParseRules([]byte(tt.data))
			require.NoError(t, err)
			require.Equal(t, 1, store.Len())

			assert.Equal(t, tt.triggers, store.rules[0].TriggerPhrases)
			assert.Equal(t, tt.response, store.rules[0].BotResponse)
		})
	}
}

func TestLoadRulesByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(jsonPath,
		[]byte(`[{"user_input":["smile"],"required_words":[],"bot_response":"\ud83d\ude00 \/"}]`), 0o644))
	store, err := LoadRules(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "\U0001F600 /", store.rules[0].BotResponse)

	yamlPath := filepath.Join(dir, "rules.yml")
	require.NoError(t, os.WriteFile(yamlPath,
		[]byte("[{user_input: [hi], required_words: [], bot_response: yo}]\n"), 0o644))
	store, err = LoadRules(yamlPath)
	require.NoError(t, err, "flow-style YAML in a .yml file is read as YAML")
	assert.Equal(t, "yo", store.rules[0].BotResponse)

	objectPath := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(objectPath, []byte(`{"user_input": []}`), 0o644))
	_, err = LoadRules(objectPath)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, -1, loadErr.Index)
	assert.Equal(t, objectPath, loadErr.Path)
}

func TestParseRulesYAML(t *testing.T) {
	data := `
- user_input: [Hours, open]
  required_words: []
  bot_response: "We are open 9 to 5."
- user_input: [price]
  required_words: [Shipping]
  bot_response: Shipping is free.
`
	store, err := ParseRules([]byte(data))
	require.NoError(t, err)

	rules := store.rules
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"hours", "open"}, rules[0].TriggerPhrases, "phrases are lowercased at load")
	assert.Equal(t, []string{"shipping"}, rules[1].RequiredWords)
	assert.Equal(t, "Shipping is free.", rules[1].BotResponse)
}

func TestParseRulesEmptyList(t *testing.T) {
	store, err := ParseRules([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	_, matched := store.Match("hello")
	assert.False(t, matched)
}

func TestParseRulesMalformed(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		index int
		field string
	}{
		{"empty file", ``, -1, ""},
		{"invalid syntax", `[{"user_input": `, -1, ""},
		{"not a list", `{"user_input": ["hi"], "required_words": [], "bot_response": "x"}`, -1, ""},
		{"record not a mapping", `["hello"]`, 0, ""},
		{"null trigger phrases", `[{"user_input": null, "required_words": [], "bot_response": "x"}]`, 0, "user_input"},
		{"missing required words", `[{"user_input": ["a"], "bot_response": "x"}]`, 0, "required_words"},
		{"non-string trigger", `[{"user_input": ["a", 5], "required_words": [], "bot_response": "x"}]`, 0, "user_input"},
		{"required words not a list", `[{"user_input": ["a"], "required_words": "b", "bot_response": "x"}]`, 0, "required_words"},
		{"numeric response", `[{"user_input": ["a"], "required_words": [], "bot_response": 42}]`, 0, "bot_response"},
		{"missing response", `[{"user_input": ["a"], "required_words": []}]`, 0, "bot_response"},
		{"second record bad", `[{"user_input": ["a"], "required_words": [], "bot_response": "x"}, {"user_input": ["b"], "required_words": [], "bot_response": ["y"]}]`, 1, "bot_response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := ParseRules([]byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, store)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), "expected *LoadError, got %T", err)
			assert.Equal(t, tt.index, loadErr.Index)
			assert.Equal(t, tt.field, loadErr.Field)
		})
	}
}

func TestLoadRulesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	_, err := LoadRules(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), path)
}

func TestLoadRulesMalformedFileCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"user_input": ["a"]}]`), 0o644))

	_, err := LoadRules(path)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.Path)
	assert.Equal(t, "required_words", loadErr.Field)
}

func TestLoadRulesBundledFile(t *testing.T) {
	store, err := LoadRules(filepath.Join("..", "botResponses.json"))
	require.NoError(t, err)
	assert.Positive(t, store.Len())
}

func TestMatchFirstRuleWins(t *testing.T) {
	store := newRuleStore([]models.Rule{
		{TriggerPhrases: []string{"order"}, RequiredWords: []string{}, BotResponse: "first"},
		{TriggerPhrases: []string{"order"}, RequiredWords: []string{"status"}, BotResponse: "second"},
	})

	rule, matched := store.Match("what is my order status")
	require.True(t, matched)
	assert.Equal(t, "first", rule.BotResponse)
}

func TestMatchRequiredWords(t *testing.T) {
	store := testRuleStore(t)

	_, matched := store.Match("bye")
	assert.False(t, matched, "required words missing")

	rule, matched := store.Match("see you, bye!")
	require.True(t, matched)
	assert.Equal(t, "See ya!", rule.BotResponse)
}

func TestMatchEmptyTriggersNeverMatch(t *testing.T) {
	store := newRuleStore([]models.Rule{
		{TriggerPhrases: []string{}, RequiredWords: []string{}, BotResponse: "never"},
		{TriggerPhrases: nil, RequiredWords: []string{"x"}, BotResponse: "never either"},
	})

	_, matched := store.Match("x marks the spot")
	assert.False(t, matched)
	_, matched = store.Match("")
	assert.False(t, matched)
}
