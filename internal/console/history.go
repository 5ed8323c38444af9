package console

import (
	"fmt"
	"io"
)

// History is a bounded ring of dispatched lines.
type History struct {
	lines []string
	next  int
	total int
}

// NewHistory returns a ring holding at most size lines.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{lines: make([]string, size)}
}

// Add records line, evicting the oldest entry when full.
func (h *History) Add(line string) {
	h.lines[h.next] = line
	h.next = (h.next + 1) % len(h.lines)
	h.total++
}

// Lines returns the retained lines, oldest first.
func (h *History) Lines() []string {
	n := min(h.total, len(h.lines))
	out := make([]string, 0, n)
	start := (h.next - n + len(h.lines)) % len(h.lines)
	for i := 0; i < n; i++ {
		out = append(out, h.lines[(start+i)%len(h.lines)])
	}
	return out
}

// WriteTo prints the retained lines numbered by their overall sequence.
func (h *History) WriteTo(w io.Writer) (int64, error) {
	lines := h.Lines()
	first := h.total - len(lines) + 1

	var written int64
	for i, line := range lines {
		n, err := fmt.Fprintf(w, "%4d  %s\n", first+i, line)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
