package console

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(context.Context, io.Writer, []string) error { return nil }

func names(t *Table) []string {
	var out []string
	for _, e := range t.Entries() {
		out = append(out, e.Name())
	}
	return out
}

func TestRegisterUpToCapacity(t *testing.T) {
	table := NewTable(Options{Capacity: 3})

	for i, cmd := range []string{"a", "b", "c"} {
		idx, err := table.Register(cmd+"\thint", 1, 0, nopHandler)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}

	idx, err := table.Register("d\thint", 1, 0, nopHandler)
	assert.Equal(t, NoHandle, idx)
	assert.True(t, stderrors.Is(err, errors.ErrCapacityExceeded))
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"a", "b", "c"}, names(table))
}

func TestRegisterDefaultCapacity(t *testing.T) {
	table := NewTable(Options{})
	for i := 0; i < DefaultCapacity; i++ {
		_, err := table.Register(fmt.Sprintf("cmd%d", i), 1, 0, nopHandler)
		require.NoError(t, err)
	}
	_, err := table.Register("one-too-many", 1, 0, nopHandler)
	assert.Error(t, err)
	assert.Equal(t, DefaultCapacity, table.Len())
	assert.Equal(t, DefaultCapacity, table.Cap())
}

func TestRegisterFullTableRejectsDuplicate(t *testing.T) {
	table := NewTable(Options{Capacity: 1})
	_, err := table.Register("exit", 1, 0, nopHandler)
	require.NoError(t, err)

	_, err = table.Register("exit\tagain", 1, 0, nopHandler)
	assert.True(t, stderrors.Is(err, errors.ErrCapacityExceeded))
	assert.Equal(t, "exit", table.Entries()[0].Help)
}

func TestRegisterNilHandler(t *testing.T) {
	table := NewTable(Options{})
	idx, err := table.Register("broken", 1, 0, nil)
	assert.Equal(t, NoHandle, idx)
	assert.Error(t, err)
	assert.Zero(t, table.Len())
}

func TestRegisterDuplicateReplacesAndMovesToEnd(t *testing.T) {
	table := NewTable(Options{})
	var called string

	_, err := table.Register("show clock\told", 2, 0, func(context.Context, io.Writer, []string) error {
		called = "old"
		return nil
	})
	require.NoError(t, err)
	_, err = table.Register("servo reset\tReset", 2, 0, nopHandler)
	require.NoError(t, err)

	idx, err := table.Register("show clock\tnew", 2, 0, func(context.Context, io.Writer, []string) error {
		called = "new"
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"servo reset", "show clock"}, names(table))

	entry := table.Entries()[idx]
	assert.Equal(t, "new", entry.Hint())
	require.NoError(t, entry.Handler(context.Background(), io.Discard, nil))
	assert.Equal(t, "new", called)
}

func TestRegisterDifferentTokenCountsCoexist(t *testing.T) {
	table := NewTable(Options{})
	_, err := table.Register("show\tShow all", 1, 0, nopHandler)
	require.NoError(t, err)
	_, err = table.Register("show clock\tShow clock", 2, 0, nopHandler)
	require.NoError(t, err)

	// Only the first word counts here, so this duplicates "show".
	_, err = table.Register("show offset\tShow offset", 1, 0, nopHandler)
	require.NoError(t, err)

	assert.Equal(t, []string{"show clock", "show"}, names(table))
	assert.Equal(t, "Show offset", table.Entries()[1].Hint())
}

func TestRegisterDuplicateNeedsSameDeclaredCount(t *testing.T) {
	table := NewTable(Options{})
	_, err := table.Register("show\tall", 1, 0, nopHandler)
	require.NoError(t, err)
	// Same words, but declared with a longer prefix: kept alongside.
	_, err = table.Register("show\tx", 2, 0, nopHandler)
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	entries := table.Entries()
	assert.Equal(t, 1, entries[0].TokenCount)
	assert.Equal(t, 2, entries[1].TokenCount)
	assert.Equal(t, []string{"show"}, entries[1].Tokens)

	_, err = table.Register("show\ty", 2, 0, nopHandler)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "y", table.Entries()[1].Hint())
}

func TestRegisterTokenizesLabelOnly(t *testing.T) {
	table := NewTable(Options{})

	_, err := table.Register("exit \t\t\t Exit application", 1, 0, nopHandler)
	require.NoError(t, err)
	_, err = table.Register("set value\tSets a value", 5, 1, nopHandler)
	require.NoError(t, err)
	_, err = table.Register("a b c d e f g h i j", 10, 0, nopHandler)
	require.NoError(t, err)

	entries := table.Entries()
	assert.Equal(t, []string{"exit"}, entries[0].Tokens)
	assert.Equal(t, []string{"set", "value"}, entries[1].Tokens)
	assert.Equal(t, 1, entries[1].MinArgs)
	assert.Len(t, entries[2].Tokens, DefaultMaxCommandTokens)
	assert.Equal(t, "", entries[2].Hint())
}

func TestRemoveAtCompacts(t *testing.T) {
	table := NewTable(Options{})
	for _, cmd := range []string{"a", "b", "c", "d"} {
		_, err := table.Register(cmd, 1, 0, nopHandler)
		require.NoError(t, err)
	}

	table.RemoveAt(1)
	assert.Equal(t, []string{"a", "c", "d"}, names(table))

	table.RemoveAt(-1)
	table.RemoveAt(3)
	assert.Equal(t, 3, table.Len())

	table.RemoveAt(2)
	assert.Equal(t, []string{"a", "c"}, names(table))
}

func TestRemoveMany(t *testing.T) {
	table := NewTable(Options{})
	for _, cmd := range []string{"a", "b", "c", "d", "e"} {
		_, err := table.Register(cmd, 1, 0, nopHandler)
		require.NoError(t, err)
	}

	table.RemoveMany([]int{3, 1, NoHandle, 0})
	assert.Equal(t, []string{"a", "c", "e"}, names(table))

	// Ascending handles hit shifted entries: removing 0 then 1 drops a and e.
	table.RemoveMany([]int{0, 1})
	assert.Equal(t, []string{"c"}, names(table))
}

func TestMatchFirstFullPrefixWins(t *testing.T) {
	table := NewTable(Options{})
	_, err := table.Register("show\tShow all", 1, 0, nopHandler)
	require.NoError(t, err)
	_, err = table.Register("show clock\tShow clock", 2, 0, nopHandler)
	require.NoError(t, err)

	idx, ok := table.Match(strings.Fields("show clock now"))
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = table.Match([]string{"sho"})
	assert.False(t, ok)
}

func TestMatchNeedsWholePrefix(t *testing.T) {
	table := NewTable(Options{})
	_, err := table.Register("servo reset", 2, 0, nopHandler)
	require.NoError(t, err)
	_, err = table.Register("", 0, 0, nopHandler)
	require.NoError(t, err)

	_, ok := table.Match([]string{"servo"})
	assert.False(t, ok)

	_, ok = table.Match([]string{"anything"})
	assert.False(t, ok, "an entry without tokens never matches")

	idx, ok := table.Match([]string{"servo", "reset", "hard"})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestEntriesReturnsCopies(t *testing.T) {
	table := NewTable(Options{})
	_, err := table.Register("ptp info", 2, 0, nopHandler)
	require.NoError(t, err)

	entries := table.Entries()
	entries[0].Tokens[0] = "mutated"

	assert.Equal(t, "ptp info", table.Entries()[0].Name())
}
