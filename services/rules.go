package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chatbot/models"

	"gopkg.in/yaml.v3"
)

// Rule file field names
const (
	fieldUserInput     = "user_input"
	fieldRequiredWords = "required_words"
	fieldBotResponse   = "bot_response"
)

// LoadError reports a missing or malformed rule file. It is fatal at boot.
type LoadError struct {
	Path  string
	Index int // record index, -1 when the error is not tied to a record
	Field string
	Err   error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("loading rules")
	if e.Path != "" {
		fmt.Fprintf(&b, " from %s", e.Path)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": record %d", e.Index)
		if e.Field != "" {
			fmt.Fprintf(&b, " field %q", e.Field)
		}
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// RuleStore holds the ordered rule table. It is never mutated after load,
// so it is safe for concurrent readers without locking.
type RuleStore struct {
	rules []models.Rule
}

// LoadRules reads and validates the rule file at path.
// .yaml and .yml files are parsed as YAML, .json files as JSON, anything else is sniffed.
func LoadRules(path string) (*RuleStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Index: -1, Err: fmt.Errorf("reading rule file: %w", err)}
	}

	var store *RuleStore
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		store, err = parseYAMLRules(data)
	case ".json":
		store, err = parseJSONRules(data)
	default:
		store, err = ParseRules(data)
	}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return nil, err
	}

	return store, nil
}

// ParseRules builds a RuleStore from serialized rule records, preserving their order.
// Input starting with '[' is decoded as JSON, anything else as YAML.
func ParseRules(data []byte) (*RuleStore, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return parseJSONRules(data)
	}
	return parseYAMLRules(data)
}

func parseJSONRules(data []byte) (*RuleStore, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &LoadError{Index: -1, Err: fmt.Errorf("parsing rule file: %w", err)}
	}
	if records == nil {
		return nil, &LoadError{Index: -1, Err: errors.New("rule file must contain a list of rules")}
	}

	rules := make([]models.Rule, 0, len(records))
	for i, record := range records {
		rule, field, err := parseJSONRule(record)
		if err != nil {
			return nil, &LoadError{Index: i, Field: field, Err: err}
		}
		rules = append(rules, rule)
	}

	return &RuleStore{rules: rules}, nil
}

func parseJSONRule(record json.RawMessage) (models.Rule, string, error) {
	if jsonKind(record) != "object" {
		return models.Rule{}, "", fmt.Errorf("rule must be an object, got %s", jsonKind(record))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return models.Rule{}, "", err
	}

	triggers, err := jsonStringList(fields, fieldUserInput)
	if err != nil {
		return models.Rule{}, fieldUserInput, err
	}

	required, err := jsonStringList(fields, fieldRequiredWords)
	if err != nil {
		return models.Rule{}, fieldRequiredWords, err
	}

	raw, ok := fields[fieldBotResponse]
	if !ok {
		return models.Rule{}, fieldBotResponse, errors.New("missing field")
	}
	var response string
	if jsonKind(raw) != "string" || json.Unmarshal(raw, &response) != nil {
		return models.Rule{}, fieldBotResponse, fmt.Errorf("must be a string, got %s", jsonKind(raw))
	}

	return models.Rule{
		TriggerPhrases: lowerAll(triggers),
		RequiredWords:  lowerAll(required),
		BotResponse:    response,
	}, "", nil
}

func jsonStringList(fields map[string]json.RawMessage, name string) ([]string, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, errors.New("missing field")
	}
	if jsonKind(raw) != "array" {
		return nil, fmt.Errorf("must be a list of strings, got %s", jsonKind(raw))
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, err
	}

	values := make([]string, 0, len(elements))
	for i, element := range elements {
		var value string
		if jsonKind(element) != "string" || json.Unmarshal(element, &value) != nil {
			return nil, fmt.Errorf("element %d must be a string, got %s", i, jsonKind(element))
		}
		values = append(values, value)
	}
	return values, nil
}

// jsonKind names the JSON type of a raw value from its first byte
func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "nothing"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '[':
		return "array"
	case '{':
		return "object"
	case 'n':
		return "null"
	case 't', 'f':
		return "bool"
	default:
		return "number"
	}
}

func parseYAMLRules(data []byte) (*RuleStore, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Index: -1, Err: fmt.Errorf("parsing rule file: %w", err)}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &LoadError{Index: -1, Err: errors.New("rule file is empty")}
	}

	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.SequenceNode {
		return nil, &LoadError{Index: -1, Err: errors.New("rule file must contain a list of rules")}
	}

	rules := make([]models.Rule, 0, len(root.Content))
	for i, item := range root.Content {
		rule, field, err := parseRule(resolveAlias(item))
		if err != nil {
			return nil, &LoadError{Index: i, Field: field, Err: err}
		}
		rules = append(rules, rule)
	}

	return &RuleStore{rules: rules}, nil
}

// newRuleStore wraps already-built rules, lowercasing their phrases
func newRuleStore(rules []models.Rule) *RuleStore {
	copied := make([]models.Rule, 0, len(rules))
	for _, rule := range rules {
		copied = append(copied, models.Rule{
			TriggerPhrases: lowerAll(rule.TriggerPhrases),
			RequiredWords:  lowerAll(rule.RequiredWords),
			BotResponse:    rule.BotResponse,
		})
	}
	return &RuleStore{rules: copied}
}

func parseRule(node *yaml.Node) (models.Rule, string, error) {
	if node.Kind != yaml.MappingNode {
		return models.Rule{}, "", fmt.Errorf("rule must be a mapping, got %s", node.ShortTag())
	}

	fields := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = resolveAlias(node.Content[i+1])
	}

	triggers, err := stringList(fields[fieldUserInput])
	if err != nil {
		return models.Rule{}, fieldUserInput, err
	}

	required, err := stringList(fields[fieldRequiredWords])
	if err != nil {
		return models.Rule{}, fieldRequiredWords, err
	}

	response, ok := fields[fieldBotResponse]
	if !ok {
		return models.Rule{}, fieldBotResponse, errors.New("missing field")
	}
	if response.Kind != yaml.ScalarNode || response.ShortTag() != "!!str" {
		return models.Rule{}, fieldBotResponse, fmt.Errorf("must be a string, got %s", response.ShortTag())
	}

	return models.Rule{
		TriggerPhrases: lowerAll(triggers),
		RequiredWords:  lowerAll(required),
		BotResponse:    response.Value,
	}, "", nil
}

func stringList(node *yaml.Node) ([]string, error) {
	if node == nil {
		return nil, errors.New("missing field")
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("must be a list of strings, got %s", node.ShortTag())
	}

	values := make([]string, 0, len(node.Content))
	for i, element := range node.Content {
		element = resolveAlias(element)
		if element.Kind != yaml.ScalarNode || element.ShortTag() != "!!str" {
			return nil, fmt.Errorf("element %d must be a string, got %s", i, element.ShortTag())
		}
		values = append(values, element.Value)
	}
	return values, nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func lowerAll(values []string) []string {
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	return lowered
}

// Match returns the first rule, in load order, that fires for the lowercased message.
// A rule fires when the message contains at least one trigger phrase and every
// required word. Rules without trigger phrases never fire.
func (s *RuleStore) Match(lowerMsg string) (models.Rule, bool) {
	for _, rule := range s.rules {
		if !containsAny(lowerMsg, rule.TriggerPhrases) {
			continue
		}
		if containsAll(lowerMsg, rule.RequiredWords) {
			return rule, true
		}
	}
	return models.Rule{}, false
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAll(s string, substrs []string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// Len returns the number of loaded rules
func (s *RuleStore) Len() int {
	return len(s.rules)
}
