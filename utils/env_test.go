package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		key := key
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() { os.Unsetenv(key) })
	}
}

func TestLoadEnv(t *testing.T) {
	unsetAfter(t, "CHATBOT_TEST_PLAIN", "CHATBOT_TEST_QUOTED", "CHATBOT_TEST_SINGLE", "CHATBOT_TEST_EXPORT")
	path := writeEnvFile(t, `
# comment
CHATBOT_TEST_PLAIN=plain
CHATBOT_TEST_QUOTED="with spaces"
CHATBOT_TEST_SINGLE='single=equals'
export CHATBOT_TEST_EXPORT=exported
not a pair
`)

	loaded, err := LoadEnv(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"CHATBOT_TEST_PLAIN", "CHATBOT_TEST_QUOTED", "CHATBOT_TEST_SINGLE", "CHATBOT_TEST_EXPORT"}, loaded)
	assert.Equal(t, "plain", os.Getenv("CHATBOT_TEST_PLAIN"))
	assert.Equal(t, "with spaces", os.Getenv("CHATBOT_TEST_QUOTED"))
	assert.Equal(t, "single=equals", os.Getenv("CHATBOT_TEST_SINGLE"))
	assert.Equal(t, "exported", os.Getenv("CHATBOT_TEST_EXPORT"))
}

func TestLoadEnvKeepsExistingValues(t *testing.T) {
	t.Setenv("CHATBOT_TEST_EXISTING", "from-system")
	path := writeEnvFile(t, "CHATBOT_TEST_EXISTING=from-file\n")

	loaded, err := LoadEnv(path, nil)
	require.NoError(t, err)

	assert.Empty(t, loaded)
	assert.Equal(t, "from-system", os.Getenv("CHATBOT_TEST_EXISTING"))
}

func TestLoadEnvMissingFile(t *testing.T) {
	loaded, err := LoadEnv(filepath.Join(t.TempDir(), "nope.env"), nil)

	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadEnvWithFallbackPrefersEarlierFiles(t *testing.T) {
	unsetAfter(t, "CHATBOT_TEST_ORDER", "CHATBOT_TEST_LOCAL_ONLY")
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("CHATBOT_TEST_ORDER=first\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("CHATBOT_TEST_ORDER=second\nCHATBOT_TEST_LOCAL_ONLY=yes\n"), 0o600))

	original := EnvFileLocations
	EnvFileLocations = []string{first, filepath.Join(dir, "missing.env"), second}
	t.Cleanup(func() { EnvFileLocations = original })

	require.NoError(t, LoadEnvWithFallback(zaptest.NewLogger(t)))

	assert.Equal(t, "first", os.Getenv("CHATBOT_TEST_ORDER"))
	assert.Equal(t, "yes", os.Getenv("CHATBOT_TEST_LOCAL_ONLY"))
}
