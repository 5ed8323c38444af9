package hostcmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/conneroisu/ptpconsole/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type levelRecorder struct {
	level logging.LogLevel
}

func (l *levelRecorder) SetLevel(level logging.LogLevel) { l.level = level }
func (l *levelRecorder) Level() logging.LogLevel         { return l.level }

func setup(t *testing.T) (*console.Console, *bytes.Buffer, *levelRecorder) {
	t.Helper()

	var out bytes.Buffer
	c := console.New(console.Options{Out: &out})
	levels := &levelRecorder{level: logging.LevelInfo}

	handles, err := Register(c, Deps{
		Levels:  levels,
		Version: func() string { return "ptpconsole v1.2.3" },
	})
	require.NoError(t, err)
	require.Len(t, handles, 7)
	assert.Equal(t, console.NoHandle, handles[len(handles)-1])

	return c, &out, levels
}

func TestRegisterListsCommandsInHelp(t *testing.T) {
	c, out, _ := setup(t)

	require.NoError(t, c.Dispatch(context.Background(), "?"))
	help := out.String()
	for _, want := range []string{"Exit application", "Show command history", "Switch colored output",
		"Set log verbosity", "Run commands from a file", "Show version", "(6/48)"} {
		assert.Contains(t, help, want)
	}
}

func TestRegisterOptionalCommands(t *testing.T) {
	c := console.New(console.Options{Out: &bytes.Buffer{}})
	handles, err := Register(c, Deps{})
	require.NoError(t, err)

	assert.Len(t, handles, 5)
	assert.Equal(t, 4, c.Table().Len())
}

func TestRegisterRollsBackOnCapacity(t *testing.T) {
	c := console.New(console.Options{Out: &bytes.Buffer{}, Capacity: 2})
	_, err := Register(c, Deps{})

	assert.True(t, stderrors.Is(err, errors.ErrCapacityExceeded))
	assert.Zero(t, c.Table().Len())
}

func TestUnregister(t *testing.T) {
	var out bytes.Buffer
	c := console.New(console.Options{Out: &out})
	_, err := c.Register("ptp info\tShow PTP state", 2, 0, func(context.Context, io.Writer, []string) error { return nil })
	require.NoError(t, err)

	handles, err := Register(c, Deps{})
	require.NoError(t, err)
	require.Equal(t, 5, c.Table().Len())

	Unregister(c, handles)
	require.Equal(t, 1, c.Table().Len())
	assert.Equal(t, "ptp info", c.Table().Entries()[0].Name())
}

func TestRegisterHandlesSurviveDuplicateReplacement(t *testing.T) {
	c := console.New(console.Options{Out: &bytes.Buffer{}})
	nop := func(context.Context, io.Writer, []string) error { return nil }
	_, err := c.Register("hist\tapplication history", 1, 0, nop)
	require.NoError(t, err)
	_, err = c.Register("ptp info\tShow PTP state", 2, 0, nop)
	require.NoError(t, err)

	// exit lands at index 2, then hist replaces index 0 and shifts it down.
	handles, err := Register(c, Deps{})
	require.NoError(t, err)
	require.Len(t, handles, 5)

	entries := c.Table().Entries()
	var names []string
	for _, h := range handles[:len(handles)-1] {
		names = append(names, entries[h].Name())
	}
	assert.Equal(t, []string{"exit", "hist", "color", "source"}, names)

	Unregister(c, handles)
	require.Equal(t, 1, c.Table().Len())
	assert.Equal(t, "ptp info", c.Table().Entries()[0].Name())
}

func TestRegisterRollbackAfterDuplicateReplacement(t *testing.T) {
	c := console.New(console.Options{Out: &bytes.Buffer{}, Capacity: 4})
	nop := func(context.Context, io.Writer, []string) error { return nil }
	_, err := c.Register("color\tapplication colors", 1, 0, nop)
	require.NoError(t, err)
	_, err = c.Register("ptp info\tShow PTP state", 2, 0, nop)
	require.NoError(t, err)

	// exit and hist fill the table, so color is rejected before it can
	// replace the application's entry.
	_, err = Register(c, Deps{})
	require.True(t, stderrors.Is(err, errors.ErrCapacityExceeded))

	var names []string
	for _, e := range c.Table().Entries() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"color", "ptp info"}, names)
}

func TestExit(t *testing.T) {
	c, out, _ := setup(t)

	in := strings.NewReader("exit\n?\n")
	require.NoError(t, c.Run(context.Background(), in))

	assert.Contains(t, out.String(), "Exiting...\n\n")
	assert.NotContains(t, out.String(), "Print this help", "lines after exit are not run")
}

func TestHist(t *testing.T) {
	c, out, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, "version"))
	_ = c.Dispatch(ctx, "bogus line")
	out.Reset()

	require.NoError(t, c.Dispatch(ctx, "hist"))
	assert.Equal(t, "   1  version\n   2  bogus line\n   3  hist\n", out.String())
}

func TestColor(t *testing.T) {
	c, out, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, "color on"))
	assert.True(t, c.Theme().Color)
	assert.Contains(t, out.String(), "Colors on")

	require.NoError(t, c.Dispatch(ctx, "color off"))
	assert.False(t, c.Theme().Color)

	err := c.Dispatch(ctx, "color maybe")
	assert.True(t, stderrors.Is(err, errors.ErrCallbackFailed))

	err = c.Dispatch(ctx, "color")
	assert.True(t, stderrors.Is(err, errors.ErrInsufficientArguments))
}

func TestLogLevel(t *testing.T) {
	c, out, levels := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, "log level debug"))
	assert.Equal(t, logging.LevelDebug, levels.level)
	assert.Contains(t, out.String(), "Log level DEBUG")

	err := c.Dispatch(ctx, "log level chatty")
	assert.True(t, stderrors.Is(err, errors.ErrCallbackFailed))
	assert.Equal(t, logging.LevelDebug, levels.level)
}

func TestLogLevelDrivesRealLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelInfo, Format: "text", Output: &logs})

	c := console.New(console.Options{Out: &bytes.Buffer{}, Logger: logger})
	_, err := Register(c, Deps{Levels: logger})
	require.NoError(t, err)

	require.NoError(t, c.Dispatch(context.Background(), "log level debug"))
	assert.Equal(t, logging.LevelDebug, logger.Level())

	require.NoError(t, c.Dispatch(context.Background(), "hist"))
	assert.Contains(t, logs.String(), "Dispatching command")
}

func TestVersion(t *testing.T) {
	c, out, _ := setup(t)

	require.NoError(t, c.Dispatch(context.Background(), "version"))
	assert.Equal(t, "ptpconsole v1.2.3\n", out.String())
}

func TestSource(t *testing.T) {
	c, out, _ := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	script := filepath.Join(dir, "boot.cfg")
	require.NoError(t, os.WriteFile(script, []byte("# boot\ncolor on\n\nversion\n"), 0o644))

	require.NoError(t, c.Dispatch(ctx, "source "+script+" echo=off"))
	assert.True(t, c.Theme().Color)
	assert.Contains(t, out.String(), "ptpconsole v1.2.3")
	assert.NotContains(t, out.String(), "> version")

	require.NoError(t, c.Dispatch(ctx, "color off"))
	out.Reset()
	require.NoError(t, c.Dispatch(ctx, "source "+script))
	assert.Contains(t, out.String(), "Loading config...\n\n")
	assert.Contains(t, out.String(), "\n> version\n")
	assert.Contains(t, out.String(), "\n...done!\n")
}

func TestSourceFailures(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	err := c.Dispatch(ctx, "source "+filepath.Join(dir, "missing.cfg"))
	assert.True(t, stderrors.Is(err, errors.ErrCallbackFailed))

	bad := filepath.Join(dir, "bad.cfg")
	require.NoError(t, os.WriteFile(bad, []byte("bogus\nversion\n"), 0o644))
	err = c.Dispatch(ctx, "source "+bad)
	assert.True(t, stderrors.Is(err, errors.ErrCallbackFailed))
	assert.Contains(t, err.Error(), "1 of 2 lines failed")

	err = c.Dispatch(ctx, "source "+bad+" echo=loud")
	assert.True(t, stderrors.Is(err, errors.ErrCallbackFailed))
}

func TestSourceRecursionIsBounded(t *testing.T) {
	c, out, _ := setup(t)
	dir := t.TempDir()

	loop := filepath.Join(dir, "loop.cfg")
	require.NoError(t, os.WriteFile(loop, []byte("source "+loop+" echo=off\n"), 0o644))

	err := c.Dispatch(context.Background(), "source "+loop+" echo=off")
	assert.Error(t, err)
	assert.Equal(t, maxSourceDepth, strings.Count(out.String(), "Loading config..."))
}
