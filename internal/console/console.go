package console

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/conneroisu/ptpconsole/internal/logging"
)

// ErrAlreadyRunning is returned by Run when the loop is active.
var ErrAlreadyRunning = stderrors.New("console already running")

// Console owns a command table and the loop that feeds it input lines.
//
// Registration and dispatch are single-threaded: register before Run, and
// from then on touch the table only from handlers or through Submit. Stop and
// Submit are safe to call from any goroutine.
type Console struct {
	table   *Table
	opts    Options
	out     io.Writer
	color   atomic.Bool
	history *History
	logger  logging.Logger
	errs    *errors.ErrorHandler

	running  atomic.Bool
	wake     chan struct{}
	requests chan *request

	mu     sync.Mutex
	active bool          // a Run call is in progress
	done   chan struct{} // closed when the current Run returns
}

type request struct {
	ctx    context.Context
	line   string
	result chan result
}

type result struct {
	output string
	err    error
}

// New creates a console with an empty command table.
func New(opts Options) *Console {
	opts = opts.withDefaults()
	logger := opts.Logger.WithComponent("console")

	c := &Console{
		table:    NewTable(opts),
		opts:     opts,
		out:      opts.Out,
		history:  NewHistory(opts.HistorySize),
		logger:   logger,
		errs:     errors.NewErrorHandler(logger),
		wake:     make(chan struct{}, 1),
		requests: make(chan *request),
	}
	c.color.Store(opts.Color)
	return c
}

// Table exposes the command table for listing and removal.
func (c *Console) Table() *Table {
	return c.table
}

// Register adds a command; see Table.Register.
func (c *Console) Register(help string, tokenCount, minArgs int, h Handler) (int, error) {
	return c.table.Register(help, tokenCount, minArgs, h)
}

// RemoveAt removes one command; see Table.RemoveAt.
func (c *Console) RemoveAt(i int) {
	c.table.RemoveAt(i)
}

// RemoveMany removes several commands; see Table.RemoveMany.
func (c *Console) RemoveMany(handles []int) {
	c.table.RemoveMany(handles)
}

// Out returns the writer the console prints to.
func (c *Console) Out() io.Writer {
	return c.out
}

// Theme returns the active output theme.
func (c *Console) Theme() Theme {
	return Theme{Color: c.color.Load()}
}

// SetColor switches ANSI colors on or off.
func (c *Console) SetColor(on bool) {
	c.color.Store(on)
}

// History returns the dispatched-line history.
func (c *Console) History() *History {
	return c.history
}

// Running reports whether the loop is active.
func (c *Console) Running() bool {
	return c.running.Load()
}

// Stop asks the loop to return after the line being processed, if any. It is
// safe to call from handlers, signal handlers and other goroutines.
func (c *Console) Stop() {
	c.running.Store(false)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run reads lines from in and dispatches each one until Stop is called, ctx
// is cancelled or in reaches EOF. A read error other than EOF is returned.
//
// Reading happens on a helper goroutine so that Stop and cancellation never
// wait for input; if in blocks forever, that goroutine outlives Run.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	done := make(chan struct{})
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.active = true
	c.done = done
	c.running.Store(true)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running.Store(false)
		c.active = false
		close(done)
		c.mu.Unlock()
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go readLines(in, lines, readErr, done)

	fmt.Fprintf(c.out, "Type '%s' to display help!\n", c.Theme().Command("?"))
	c.logger.Info(ctx, "Console started", "commands", c.table.Len())
	c.prompt()

	for c.running.Load() {
		select {
		case <-ctx.Done():
			c.logger.Info(ctx, "Console interrupted")
			return nil
		case <-c.wake:
		case req := <-c.requests:
			var buf bytes.Buffer
			err := c.Execute(req.ctx, &buf, req.line)
			req.result <- result{output: buf.String(), err: err}
		case line, ok := <-lines:
			if !ok {
				c.logger.Info(ctx, "Console input closed")
				return <-readErr
			}
			_ = c.Dispatch(ctx, line)
			if c.running.Load() {
				c.prompt()
			}
		}
	}

	c.logger.Info(ctx, "Console stopped")
	return nil
}

// Submit runs line on the loop goroutine and returns what it printed along
// with the dispatch error. It fails with ErrNotRunning when no loop is active.
func (c *Console) Submit(ctx context.Context, line string) (string, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil || !c.running.Load() {
		return "", errors.NewNotRunningError()
	}

	req := &request{ctx: ctx, line: line, result: make(chan result, 1)}
	select {
	case c.requests <- req:
	case <-done:
		return "", errors.NewNotRunningError()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	// The loop always answers a request it accepted before returning.
	select {
	case res := <-req.result:
		return res.output, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Console) prompt() {
	if c.opts.Prompt != "" {
		fmt.Fprint(c.out, c.opts.Prompt)
	}
}

func readLines(in io.Reader, lines chan<- string, errc chan<- error, done <-chan struct{}) {
	defer close(lines)

	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				errc <- err
			} else {
				errc <- nil
			}
			return
		}
	}
}
