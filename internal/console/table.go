package console

import (
	"context"
	"io"
	"slices"
	"strings"

	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/conneroisu/ptpconsole/internal/logging"
)

const (
	// DefaultCapacity is the number of commands a table holds.
	DefaultCapacity = 48
	// DefaultMaxTokenLength is the byte limit applied to every token.
	DefaultMaxTokenLength = 32
	// DefaultMaxCommandTokens caps the prefix length of a single command.
	DefaultMaxCommandTokens = 8
	// DefaultMaxLineTokens caps the number of tokens read from an input line.
	DefaultMaxLineTokens = 16
	// DefaultMinGap is the minimum number of spaces between label and hint.
	DefaultMinGap = 3

	// HintDelimiter separates the label from the hint in a help line.
	HintDelimiter = '\t'

	// NoHandle is returned by a rejected registration and terminates the
	// handle list given to RemoveMany.
	NoHandle = -1
)

// Handler runs a matched command. args holds the tokens that followed the
// command prefix; out receives anything the command prints. A non-nil error
// marks the invocation as failed.
type Handler func(ctx context.Context, out io.Writer, args []string) error

// Entry is one registered command.
type Entry struct {
	Tokens []string
	// TokenCount is the prefix length declared at registration, capped at
	// MaxCommandTokens. It may exceed len(Tokens) when the label is shorter.
	TokenCount int
	MinArgs    int
	Help       string
	Handler    Handler

	// help layout, filled in lazily by the formatter
	formatted bool
	label     string
	hint      string
	padding   string
}

// Name returns the space-joined command prefix.
func (e *Entry) Name() string {
	return strings.Join(e.Tokens, " ")
}

// Label returns the part of the help line before the hint delimiter.
func (e *Entry) Label() string {
	label, _ := splitHelp(e.Help)
	return label
}

// Hint returns the description part of the help line, or "".
func (e *Entry) Hint() string {
	_, hint := splitHelp(e.Help)
	return hint
}

// Table is the fixed-capacity, ordered command store. It is not safe for
// concurrent use: registration happens before the console loop starts and
// dispatch happens on the loop goroutine.
type Table struct {
	entries []Entry
	opts    Options
	logger  logging.Logger

	// tidy is cleared by Register only; removals keep the old layout.
	tidy        bool
	helpPadding int
}

// NewTable creates an empty table. Zero fields in opts take their defaults.
func NewTable(opts Options) *Table {
	opts = opts.withDefaults()

	return &Table{
		entries: make([]Entry, 0, opts.Capacity),
		opts:    opts,
		logger:  opts.Logger.WithComponent("table"),
	}
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Cap returns the table capacity.
func (t *Table) Cap() int {
	return t.opts.Capacity
}

// Entries returns a copy of the live entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		e.Tokens = append([]string(nil), e.Tokens...)
		out[i] = e
	}
	return out
}

// Register adds a command described by help, a "words\thint" line. The first
// min(tokenCount, MaxCommandTokens) words of the label become the command
// prefix; minArgs trailing tokens are required for h to run.
//
// An existing entry with the same prefix is removed and the new one is
// appended, so re-registering moves a command to the end of the table and
// changes its precedence against overlapping prefixes. The returned index is
// the new entry's position now; later removals before it make it stale.
func (t *Table) Register(help string, tokenCount, minArgs int, h Handler) (int, error) {
	ctx := context.Background()

	if len(t.entries) >= t.opts.Capacity {
		err := errors.NewCapacityError(t.opts.Capacity, help)
		t.logger.Warn(ctx, err, "Command table full", "help", help)
		return NoHandle, err
	}
	if h == nil {
		return NoHandle, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"nil handler for command: "+help)
	}

	label, _ := splitHelp(help)
	count := max(min(tokenCount, t.opts.MaxCommandTokens), 0)
	tokens := Tokenize(label, t.opts.MaxTokenLength, count)

	t.entries = append(t.entries, Entry{
		Tokens:     tokens,
		TokenCount: count,
		MinArgs:    max(minArgs, 0),
		Help:       help,
		Handler:    h,
	})

	// Duplicates share the declared count as well as the words.
	last := len(t.entries) - 1
	for i := 0; i < last; i++ {
		if t.entries[i].TokenCount == count && slices.Equal(t.entries[i].Tokens, tokens) {
			t.logger.Debug(ctx, "Replacing duplicate command", "command", strings.Join(tokens, " "), "old_index", i)
			t.RemoveAt(i)
			break
		}
	}

	t.tidy = false

	idx := len(t.entries) - 1
	t.logger.Debug(ctx, "Command registered",
		"command", strings.Join(tokens, " "),
		"index", idx,
		"min_args", minArgs)

	return idx, nil
}

// RemoveAt deletes the entry at index i and shifts every later entry down by
// one. Out-of-range indices are ignored. The help layout is not recomputed.
func (t *Table) RemoveAt(i int) {
	if i < 0 || i >= len(t.entries) {
		return
	}

	name := t.entries[i].Name()
	copy(t.entries[i:], t.entries[i+1:])
	t.entries[len(t.entries)-1] = Entry{}
	t.entries = t.entries[:len(t.entries)-1]

	t.logger.Debug(context.Background(), "Command removed", "command", name, "index", i)
}

// RemoveMany removes the entries at handles in order, stopping at the first
// NoHandle. Each removal shifts later entries, so pass handles in descending
// order or pre-adjust them.
func (t *Table) RemoveMany(handles []int) {
	for _, h := range handles {
		if h == NoHandle {
			return
		}
		t.RemoveAt(h)
	}
}

// Match returns the index of the first entry, in table order, whose whole
// prefix equals the leading input tokens. A shorter prefix registered earlier
// wins over a longer one registered later; entries without tokens never match.
func (t *Table) Match(tokens []string) (int, bool) {
	for i := range t.entries {
		prefix := t.entries[i].Tokens
		if len(prefix) == 0 || len(tokens) < len(prefix) {
			continue
		}
		if slices.Equal(prefix, tokens[:len(prefix)]) {
			return i, true
		}
	}

	return NoHandle, false
}
