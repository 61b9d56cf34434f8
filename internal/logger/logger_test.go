package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogConfig struct {
	level, output, file string
}

func (c testLogConfig) GetLevel() string  { return c.level }
func (c testLogConfig) GetOutput() string { return c.output }
func (c testLogConfig) GetFile() string   { return c.file }

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLogLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLogLevel("warning"))
	assert.Equal(t, ERROR, ParseLogLevel("error"))
	assert.Equal(t, INFO, ParseLogLevel("verbose"))
}

func TestInit_FileOutput(t *testing.T) {
	previous := defaultLogger
	defer SetDefaultLogger(previous)

	logFile := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init(testLogConfig{level: "info", output: "file", file: logFile}))

	Info("issue %s created", "ISSUE-00001")
	Debug("dropped at info level")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ISSUE-00001")
	assert.NotContains(t, string(data), "dropped at info level")
}

func TestInit_FileOutputRequiresPath(t *testing.T) {
	err := Init(testLogConfig{level: "info", output: "file"})
	assert.Error(t, err)
}
