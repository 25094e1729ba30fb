package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// EnvFileLocations are the .env files read at startup, in order of preference
var EnvFileLocations = []string{
	".env",
	".env.local",
	"config/.env",
}

// LoadEnv loads KEY=VALUE pairs from filename into the process environment.
// Variables already set are never overridden. A missing file is not an error.
// It returns the keys that were set from the file.
func LoadEnv(filename string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	file, err := os.Open(filename)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error opening %s file: %w", filename, err)
	}
	defer file.Close()

	logger.Info("Loading environment variables", zap.String("file", filename))

	var loaded []string
	scanner := bufio.NewScanner(file)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			logger.Warn("Invalid line in env file", zap.String("file", filename), zap.Int("line", lineNumber))
			continue
		}

		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if _, set := os.LookupEnv(key); set {
			logger.Debug("Environment variable already set, keeping existing value", zap.String("key", key))
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return loaded, fmt.Errorf("error setting %s from %s: %w", key, filename, err)
		}
		loaded = append(loaded, key)
	}

	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("error reading %s file: %w", filename, err)
	}

	return loaded, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// LoadEnvWithFallback loads every env file in EnvFileLocations that exists.
// Earlier files win because later ones never override a set variable.
func LoadEnvWithFallback(logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	total := 0
	for _, location := range EnvFileLocations {
		loaded, err := LoadEnv(location, logger)
		if err != nil {
			logger.Warn("Could not load env file", zap.String("file", location), zap.Error(err))
			continue
		}
		total += len(loaded)
	}

	if total == 0 {
		logger.Debug("No variables loaded from env files, using system environment only")
	}
	return nil
}
