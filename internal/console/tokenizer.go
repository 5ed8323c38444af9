package console

import (
	"strings"
	"unicode/utf8"
)

// Tokenize splits line on ASCII spaces into at most maxCount tokens, each cut
// to at most maxLen bytes. Runs of spaces never yield empty tokens and tabs
// are not separators. Over-long tokens are truncated silently, backing off to
// a rune boundary so a token is always valid UTF-8 when the input is.
func Tokenize(line string, maxLen, maxCount int) []string {
	if line == "" || maxCount <= 0 {
		return nil
	}

	var tokens []string
	rest := line
	for len(tokens) < maxCount {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}

		tok := rest
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			tok, rest = rest[:i], rest[i:]
		} else {
			rest = ""
		}

		tokens = append(tokens, truncateToken(tok, maxLen))
	}

	return tokens
}

func truncateToken(tok string, maxLen int) string {
	if maxLen <= 0 || len(tok) <= maxLen {
		return tok
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(tok[cut]) {
		cut--
	}
	return tok[:cut]
}
