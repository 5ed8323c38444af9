// Package console implements the operator console engine: a fixed-capacity
// command table, a space tokenizer, a prefix dispatcher and a memoized help
// formatter, plus the loop that feeds input lines through them.
//
// Subsystems register verbs with a help line of the form
//
//	"servo reset\tReset the clock servo"
//
// where the words before the tab form the command and the rest is the hint
// shown by "?" or "help". Dispatch picks the first entry in table order whose
// whole prefix matches the input, not the longest one:
//
//	c.Register("show\tShow everything", 1, 0, showAll)
//	c.Register("show clock\tShow the clock", 2, 0, showClock)
//	c.Dispatch(ctx, "show clock now") // runs showAll with args [clock now]
//
// Registering an identical prefix again replaces the old entry and moves the
// command to the end of the table, which changes that precedence.
package console
