// Package replay feeds command scripts into a console, once at start-up and
// again whenever the script changes on disk.
//
// A script is a text file with one console line per line. Leading blanks are
// ignored, as are empty lines and lines starting with '#'.
package replay

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/errors"
)

// Executor runs one console line, writing its output to out.
// *console.Console implements it.
type Executor interface {
	Execute(ctx context.Context, out io.Writer, line string) error
}

// Options controls how a script is replayed.
type Options struct {
	// Echo prints every line before it is executed.
	Echo bool
	// Frame prints the "Loading config..." and "...done!" markers.
	Frame bool
	Theme console.Theme
}

// Result summarizes one replay.
type Result struct {
	Lines  int // lines executed
	Failed int // lines whose execution returned an error
}

// File replays the script at path.
func File(ctx context.Context, exec Executor, out io.Writer, path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		code := errors.ErrCodeInternalError
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return Result{}, errors.NewIOError(code, "cannot open script "+path, err).
			WithContext("path", path)
	}
	defer f.Close()

	return Script(ctx, exec, out, f, opts)
}

// Script replays lines read from r. Failing lines are counted and replay
// continues. A read error, a cancelled ctx or a console that has stopped
// accepting lines ends the replay early.
func Script(ctx context.Context, exec Executor, out io.Writer, r io.Reader, opts Options) (Result, error) {
	var res Result

	if opts.Frame {
		fmt.Fprint(out, opts.Theme.Note("Loading config...")+"\n\n")
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		line, ok := scriptLine(scanner.Text())
		if !ok {
			continue
		}

		if opts.Echo {
			fmt.Fprint(out, "\n"+opts.Theme.Echo("> "+line)+"\n")
		}

		res.Lines++
		if err := exec.Execute(ctx, out, line); err != nil {
			if stderrors.Is(err, errors.ErrNotRunning) {
				return res, err
			}
			res.Failed++
		}
	}
	if err := scanner.Err(); err != nil {
		return res, errors.NewIOError(errors.ErrCodeInternalError, "cannot read script", err)
	}

	if opts.Frame {
		fmt.Fprint(out, "\n"+opts.Theme.Note("...done!")+"\n")
	}

	return res, nil
}

// scriptLine strips leading blanks and reports whether the line should run.
func scriptLine(raw string) (string, bool) {
	line := strings.TrimLeft(raw, " \t\r\v\f")
	line = strings.TrimRight(line, " \t\r\n")
	if line == "" || line[0] == '#' {
		return "", false
	}
	return line, true
}
