package main

import (
	"fmt"
	"os"

	"github.com/conneroisu/ptpconsole/cmd"
	"github.com/conneroisu/ptpconsole/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errors.FormatErrorWithSuggestions(err))
		os.Exit(1)
	}
}
