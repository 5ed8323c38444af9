package console

import (
	"fmt"
	"io"
	"strings"
)

// splitHelp cuts a help line at the first HintDelimiter. The label is kept
// verbatim; leading blanks and control bytes are stripped from the hint.
func splitHelp(help string) (label, hint string) {
	i := strings.IndexByte(help, HintDelimiter)
	if i < 0 {
		return help, ""
	}

	hint = strings.TrimLeftFunc(help[i+1:], func(r rune) bool { return r <= ' ' })
	return help[:i], hint
}

// format computes the help layout if a registration happened since the last
// run. Removals leave the layout untouched, so paddings may stay wider than
// the remaining labels need.
func (t *Table) format() {
	if t.tidy {
		return
	}

	maxLen := 0
	for i := range t.entries {
		e := &t.entries[i]
		if !e.formatted {
			e.label, e.hint = splitHelp(e.Help)
			e.formatted = true
		}
		maxLen = max(maxLen, len(e.label))
	}

	for i := range t.entries {
		e := &t.entries[i]
		e.padding = strings.Repeat(" ", maxLen-len(e.label)+t.opts.MinGap)
	}

	t.helpPadding = maxLen - 1 + t.opts.MinGap
	t.tidy = true
}

// Padding returns the cached padding of entry i and whether the entry has
// been laid out.
func (t *Table) Padding(i int) (string, bool) {
	if i < 0 || i >= len(t.entries) || !t.entries[i].formatted {
		return "", false
	}
	return t.entries[i].padding, true
}

// WriteHelp prints the command list with hints aligned into one column,
// preceded by the built-in "?" line.
func (t *Table) WriteHelp(w io.Writer, theme Theme) error {
	t.format()

	var b strings.Builder
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s%s\n",
		theme.Command("?"),
		theme.Hint(fmt.Sprintf("%s%s (%d/%d)",
			strings.Repeat(" ", max(t.helpPadding, 1)),
			"Print this help", len(t.entries), t.opts.Capacity)))

	for i := range t.entries {
		e := &t.entries[i]
		fmt.Fprintf(&b, "%s%s%s\n", theme.Command(e.label), e.padding, theme.Hint(e.hint))
	}
	b.WriteString("\n\n")

	_, err := io.WriteString(w, b.String())
	return err
}
