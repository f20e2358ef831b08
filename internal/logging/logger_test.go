package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	t.Cleanup(func() { UseLogger(zap.NewNop()) })
	return logs
}

func TestCategoriesShareCore(t *testing.T) {
	logs := observe(t)

	Layout("rendered %d segments", 4)
	ToolchainDebug("cc %s", "a.c")
	BuildError("write failed")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "layout", entries[0].LoggerName)
	assert.Equal(t, "rendered 4 segments", entries[0].Message)
	assert.Equal(t, "toolchain", entries[1].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestNopBeforeInitialize(t *testing.T) {
	UseLogger(zap.NewNop())
	// Must not panic with no core configured.
	Get(CategoryLayout).Info("nothing to see")
	Watch("still nothing")
}

func TestDisabledCategory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	install(zap.New(core), map[string]bool{"toolchain": false}, nil)
	t.Cleanup(func() { UseLogger(zap.NewNop()) })

	Toolchain("hidden")
	Layout("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
	assert.False(t, IsCategoryEnabled(CategoryToolchain))
	assert.True(t, IsCategoryEnabled(CategoryLayout))
}

func TestWithAddsContext(t *testing.T) {
	logs := observe(t)

	Get(CategoryBuild).With("run", "abc").Info("done")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()["run"])
}

func TestInitializeToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compartmentalize.log")
	require.NoError(t, Initialize(Config{Level: "debug", Format: "json", File: path}))
	t.Cleanup(func() { UseLogger(zap.NewNop()) })

	Layout("to the file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"to the file"`), string(data))
}

func TestInitializeRejectsBadSettings(t *testing.T) {
	assert.Error(t, Initialize(Config{Level: "chatty"}))
	assert.Error(t, Initialize(Config{Format: "xml"}))
}

func TestAuditEvents(t *testing.T) {
	logs := observe(t)

	a := Audit("run-1")
	a.ToolExec("A", "clang", 10*time.Millisecond, nil)
	a.FileWrite("out/link.ld", errors.New("disk full"))

	entries := logs.FilterLoggerName("audit").All()
	require.Len(t, entries, 2)

	assert.Equal(t, "tool_complete", entries[0].ContextMap()["event"])
	assert.Equal(t, "run-1", entries[0].ContextMap()["run"])
	assert.Equal(t, "A", entries[0].ContextMap()["compartment"])

	assert.Equal(t, "file_error", entries[1].ContextMap()["event"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
}

func TestTimer(t *testing.T) {
	logs := observe(t)

	timer := StartTimer(CategoryLayout, "render")
	elapsed := timer.Stop()

	assert.GreaterOrEqual(t, int64(elapsed), int64(0))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "render completed in")
}
