package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"DEBUG", DEBUG, true},
		{"info", INFO, true},
		{" warn ", WARN, true},
		{"WARNING", WARN, true},
		{"Error", ERROR, true},
		{"loud", INFO, false},
		{"", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "LEVEL(7)", LogLevel(7).String())
}

func TestSetFile_WritesJSONAndHonorsLevel(t *testing.T) {
	t.Cleanup(func() { SetGlobalLogLevel(INFO) })
	path := filepath.Join(t.TempDir(), "arena.log")

	l := New("test")
	require.NoError(t, l.SetFile(path))

	SetGlobalLogLevel(WARN)
	l.Info("hidden %d", 1)
	l.With("session", "s-1").Warn("shown %d", 2)
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, "shown 2")
	assert.Contains(t, text, `"session":"s-1"`)
	assert.Contains(t, text, `"logger":"test"`)
}

func TestInitializeFileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, InitializeFileLogging(dir))
	t.Cleanup(func() {
		for _, l := range []*Logger{Server, Game, Client} {
			_ = l.Sync()
		}
	})

	Game.Info("turn %d resolved", 3)
	_ = Game.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "game.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "turn 3 resolved")
	assert.FileExists(t, filepath.Join(dir, "server.log"))
	assert.FileExists(t, filepath.Join(dir, "client.log"))
}

func TestSetFile_BadPath(t *testing.T) {
	err := New("test").SetFile(filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing %s", "here")
	l.With("k", "v").Error("still nothing")
}
