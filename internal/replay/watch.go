package replay

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/conneroisu/ptpconsole/internal/logging"
	"github.com/conneroisu/ptpconsole/internal/watcher"
)

// Submitter hands a line to a running console loop and returns its output.
// *console.Console implements it.
type Submitter interface {
	Submit(ctx context.Context, line string) (string, error)
}

// SubmitExecutor runs lines through a Submitter so that they execute on the
// console loop goroutine rather than the caller's.
type SubmitExecutor struct {
	Submitter Submitter
}

// Execute submits line and copies the console output to out.
func (e SubmitExecutor) Execute(ctx context.Context, out io.Writer, line string) error {
	output, err := e.Submitter.Submit(ctx, line)
	if output != "" {
		if _, werr := io.WriteString(out, output); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// WatchConfig describes a script to re-run on change.
type WatchConfig struct {
	Path     string
	Debounce time.Duration
	Options  Options
	// Theme, when set, replaces Options.Theme at every replay so that a
	// color switch made in the meantime applies.
	Theme    func() console.Theme
	Out      io.Writer
	Logger   logging.Logger
}

// Watch replays the script through sub every time it changes, until ctx is
// cancelled or the console stops accepting lines.
func Watch(ctx context.Context, sub Submitter, cfg WatchConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("replay")

	fw, err := watcher.NewFileWatcher(cfg.Debounce, logger)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "cannot create file watcher", err)
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoEditorTempFilter)
	if err := fw.WatchFile(cfg.Path); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotFound, "cannot watch script "+cfg.Path, err).
			WithContext("path", cfg.Path)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exec := SubmitExecutor{Submitter: sub}
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		last := events[len(events)-1]
		if last.Type == watcher.EventTypeDeleted || last.Type == watcher.EventTypeRenamed {
			logger.Debug(ctx, "Script moved away, waiting for it to return", "path", cfg.Path)
			return nil
		}

		logger.Info(ctx, "Script changed, replaying", "path", cfg.Path)
		opts := cfg.Options
		if cfg.Theme != nil {
			opts.Theme = cfg.Theme()
		}
		res, err := File(ctx, exec, cfg.Out, cfg.Path, opts)
		if stderrors.Is(err, errors.ErrNotRunning) {
			cancel()
			return nil
		}
		logger.Debug(ctx, "Script replayed", "lines", res.Lines, "failed", res.Failed)
		return err
	})

	if err := fw.Start(ctx); err != nil {
		return err
	}
	logger.Debug(ctx, "Watching script", "path", cfg.Path, "debounce", cfg.Debounce)

	<-ctx.Done()
	return nil
}
