// Package util holds small helpers shared by the repl and tool mode.
package util

import "strings"

// Unpack copies the leading elements of a slice into the given variables.
// Variables without a matching element keep their value, surplus elements are dropped
func Unpack[T any](values []T, into ...*T) {
	for i := range min(len(values), len(into)) {
		*into[i] = values[i]
	}
}

// Command splits a repl line into its first word and the trimmed rest
func Command(line string) (cmd, rest string) {
	Unpack(strings.SplitN(strings.TrimSpace(line), " ", 2), &cmd, &rest)
	return cmd, strings.TrimSpace(rest)
}
