// Package hostcmd registers the commands every ptpconsole instance offers,
// independent of the PTP stack: exit, hist, color, log level, source and
// version.
package hostcmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/logging"
	"github.com/conneroisu/ptpconsole/internal/replay"
)

// maxSourceDepth bounds nested "source" commands.
const maxSourceDepth = 8

// Deps are the host services the commands act on.
type Deps struct {
	// Levels receives "log level" changes; the command is not registered
	// when nil.
	Levels logging.LevelSetter
	// Version returns the text printed by "version"; the command is not
	// registered when nil.
	Version func() string
}

type def struct {
	help    string
	tokens  int
	minArgs int
	handler console.Handler
}

type host struct {
	console     *console.Console
	deps        Deps
	sourceDepth int
}

// Register adds the host commands to c. The returned handles end with
// console.NoHandle and can be passed to Unregister.
func Register(c *console.Console, deps Deps) ([]int, error) {
	h := &host{console: c, deps: deps}

	defs := []def{
		{"exit \t\t\t Exit application", 1, 0, h.exit},
		{"hist \t\t\t Show command history", 1, 0, h.hist},
		{"color [on|off] \t\t Switch colored output", 1, 1, h.color},
		{"source [file] [echo=on|off] \t Run commands from a file", 1, 1, h.source},
	}
	if deps.Levels != nil {
		defs = append(defs, def{"log level [debug|info|warn|error] \t Set log verbosity", 2, 1, h.logLevel})
	}
	if deps.Version != nil {
		defs = append(defs, def{"version \t\t Show version", 1, 0, h.version})
	}

	for i, d := range defs {
		if _, err := c.Register(d.help, d.tokens, d.minArgs, d.handler); err != nil {
			Unregister(c, resolve(c, defs[:i]))
			return nil, err
		}
	}

	return resolve(c, defs), nil
}

// resolve looks up the current index of each registered definition. A
// registration that replaced an earlier duplicate shifts the entries after
// it, so indices returned by Register cannot be kept across the loop.
func resolve(c *console.Console, defs []def) []int {
	entries := c.Table().Entries()
	handles := make([]int, 0, len(defs)+1)
	for _, d := range defs {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Help == d.help {
				handles = append(handles, i)
				break
			}
		}
	}
	return append(handles, console.NoHandle)
}

// Unregister removes commands added by Register. It assumes no other
// registration or removal happened in between.
func Unregister(c *console.Console, handles []int) {
	// Highest handle first so earlier removals do not shift later ones.
	end := 0
	for end < len(handles) && handles[end] != console.NoHandle {
		end++
	}
	ordered := slices.Clone(handles[:end])
	slices.Sort(ordered)
	slices.Reverse(ordered)
	c.RemoveMany(append(ordered, console.NoHandle))
}

func (h *host) exit(_ context.Context, out io.Writer, _ []string) error {
	fmt.Fprint(out, "Exiting...\n\n")
	h.console.Stop()
	return nil
}

func (h *host) hist(_ context.Context, out io.Writer, _ []string) error {
	_, err := h.console.History().WriteTo(out)
	return err
}

func (h *host) color(_ context.Context, out io.Writer, args []string) error {
	on, err := console.ParseOnOff(args[0])
	if err != nil {
		return err
	}
	h.console.SetColor(on)
	fmt.Fprintf(out, "Colors %s\n", args[0])
	return nil
}

func (h *host) logLevel(_ context.Context, out io.Writer, args []string) error {
	level, err := logging.ParseLevel(args[0])
	if err != nil {
		return err
	}
	h.deps.Levels.SetLevel(level)
	fmt.Fprintf(out, "Log level %s\n", level)
	return nil
}

func (h *host) source(ctx context.Context, out io.Writer, args []string) error {
	if h.sourceDepth >= maxSourceDepth {
		return fmt.Errorf("source nested deeper than %d", maxSourceDepth)
	}

	echo := true
	if v, ok := console.ParamValue(args[1:], "echo="); ok {
		on, err := console.ParseOnOff(v)
		if err != nil {
			return err
		}
		echo = on
	}

	h.sourceDepth++
	defer func() { h.sourceDepth-- }()

	res, err := replay.File(ctx, h.console, out, args[0], replay.Options{
		Echo:  echo,
		Frame: true,
		Theme: h.console.Theme(),
	})
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d lines failed", res.Failed, res.Lines)
	}
	return nil
}

func (h *host) version(_ context.Context, out io.Writer, _ []string) error {
	_, err := fmt.Fprintln(out, h.deps.Version())
	return err
}
