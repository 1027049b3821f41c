// Package utils holds tiny helpers with no domain knowledge of their own,
// shared by the transport layer.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer and returns def when s is empty
// or not a number. The message listing endpoint uses it for the optional
// ?limit query parameter, where a missing or garbled value means "no limit".
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
