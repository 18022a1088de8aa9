// Package testutils holds helpers shared by tests that drive txtof end to
// end: markup and template files on disk, a test configuration and polling
// for output written by watchers.
package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/txtof/internal/config"
)

// ContactForm is a small document using every structural token.
const ContactForm = `#Contact
|Name: [?Your name->name]|{Role}<admin,user>

|(Save->submit)(#Back->contact)
---
=hidden comment
`

// CreateTestFile writes content to dir/name and returns the path.
func CreateTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// CreateTestInput writes markup to a fresh temporary directory.
func CreateTestInput(t *testing.T, content string) string {
	t.Helper()
	return CreateTestFile(t, t.TempDir(), "form.txt", content)
}

// CreateTestConfig creates a test configuration serving on a free local port
// with a short debounce.
func CreateTestConfig() *config.Config {
	return &config.Config{
		Parser: config.ParserConfig{Unterminated: config.DefaultUnterminated},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Watch: config.WatchConfig{Debounce: 20 * time.Millisecond},
		Log: config.LogConfig{
			Level:  config.DefaultLogLevel,
			Format: config.DefaultLogFormat,
		},
	}
}

// WaitForFileContent waits until the file at path contains substr.
func WaitForFileContent(t *testing.T, path, substr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && strings.Contains(string(data), substr) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s did not contain %q within %v", path, substr, timeout)
}
