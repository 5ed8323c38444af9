package console

import (
	"io"
	"os"

	"github.com/conneroisu/ptpconsole/internal/logging"
)

// DefaultPrompt is printed before every interactive read.
const DefaultPrompt = ">> "

// DefaultHistorySize is the number of lines kept by the history ring.
const DefaultHistorySize = 32

// Options configures a Console and its Table. Zero values select defaults,
// except Prompt, which may be left empty on purpose.
type Options struct {
	Capacity         int
	MaxTokenLength   int
	MaxCommandTokens int
	MaxLineTokens    int
	MinGap           int
	HistorySize      int
	Prompt           string
	Color            bool

	Out    io.Writer
	Logger logging.Logger
}

// DefaultOptions returns the stock limits with output on stdout.
func DefaultOptions() Options {
	return Options{
		Capacity:         DefaultCapacity,
		MaxTokenLength:   DefaultMaxTokenLength,
		MaxCommandTokens: DefaultMaxCommandTokens,
		MaxLineTokens:    DefaultMaxLineTokens,
		MinGap:           DefaultMinGap,
		HistorySize:      DefaultHistorySize,
		Prompt:           DefaultPrompt,
		Out:              os.Stdout,
	}
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.MaxTokenLength <= 0 {
		o.MaxTokenLength = DefaultMaxTokenLength
	}
	if o.MaxCommandTokens <= 0 {
		o.MaxCommandTokens = DefaultMaxCommandTokens
	}
	if o.MaxLineTokens <= 0 {
		o.MaxLineTokens = DefaultMaxLineTokens
	}
	if o.MinGap <= 0 {
		o.MinGap = DefaultMinGap
	}
	if o.HistorySize <= 0 {
		o.HistorySize = DefaultHistorySize
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}
