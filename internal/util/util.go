// Package util provides small string helpers shared by the command parser
// and the storage layer.
package util

import (
	"strings"
	"unicode"
)

// TrimQuotes removes one pair of enclosing double quotes, if present.
func TrimQuotes(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg trims surrounding whitespace. A quoted argument loses its
// enclosing quotes and has its inner quotes unescaped; anything else is
// returned as is.
func CleanArg(s string) string {
	s = strings.TrimSpace(s)
	if !isQuoted(s) {
		return s
	}
	return FixEscapeQuotes(TrimQuotes(s))
}

// CleanArgs applies CleanArg to every element, returning a new slice.
func CleanArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = CleanArg(a)
	}
	return out
}

// SplitCommandLine splits a line into arguments on whitespace outside
// double-quoted sections. Arguments are returned raw, quotes included, so
// that CleanArg unquotes each of them exactly once.
func SplitCommandLine(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			// a doubled quote toggles twice and stays inside the section
			inQuote = !inQuote
			cur.WriteRune(r)
		case unicode.IsSpace(r) && !inQuote:
			if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}
