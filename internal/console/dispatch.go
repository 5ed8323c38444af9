package console

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/conneroisu/ptpconsole/internal/errors"
)

// asciiSpace is trimmed from line ends; other Unicode spaces are kept.
const asciiSpace = " \t\n\v\f\r"

// Dispatch runs line against the command table, writing to the console output.
func (c *Console) Dispatch(ctx context.Context, line string) error {
	return c.Execute(ctx, c.out, line)
}

// Execute runs line against the command table, writing help, handler output
// and diagnostics to out. It must be called from the goroutine that owns the
// console: the loop goroutine once Run has started.
//
// The returned error classifies a failed line; the diagnostics printed to out
// are the user-facing result. An insufficient-arguments failure prints both
// its own diagnostic and the generic unknown-command one.
func (c *Console) Execute(ctx context.Context, out io.Writer, line string) error {
	line = strings.TrimRight(line, asciiSpace)

	tokens := Tokenize(line, c.opts.MaxTokenLength, c.opts.MaxLineTokens)
	if len(tokens) == 0 {
		return nil
	}
	c.history.Add(line)

	if tokens[0] == "?" || tokens[0] == "help" {
		return c.table.WriteHelp(out, c.Theme())
	}

	err := c.invoke(ctx, out, line, tokens)
	if err == nil {
		return nil
	}

	theme := c.Theme()

	if stderrors.Is(err, errors.ErrInsufficientArguments) {
		fmt.Fprintf(out, "%s%s%s\n",
			theme.Error("Insufficient parameters, see help! ("),
			theme.Command("?"),
			theme.Error(")"))
	}
	fmt.Fprintf(out, "%s%s%s%s%s\n",
		theme.Error("Unknown command or bad parameter: '"),
		line,
		theme.Error("', see help! ("),
		theme.Command("?"),
		theme.Error(")"))

	c.errs.Handle(ctx, err)
	return err
}

func (c *Console) invoke(ctx context.Context, out io.Writer, line string, tokens []string) error {
	idx, ok := c.table.Match(tokens)
	if !ok {
		return errors.NewUnmatchedError(line)
	}

	// Copy the entry: the handler may register or remove commands.
	entry := c.table.entries[idx]
	name := entry.Name()
	args := tokens[len(entry.Tokens):]

	if len(args) < entry.MinArgs {
		return errors.NewInsufficientArgsError(name, len(args), entry.MinArgs)
	}

	c.logger.Debug(ctx, "Dispatching command", "command", name, "argc", len(args))
	if err := entry.Handler(ctx, out, args); err != nil {
		return errors.NewCallbackError(name, err)
	}
	return nil
}
