package logger

import "io"

// Discard returns a logger that drops every record.
func Discard() Logger {
	l, _ := New(WithOutput(io.Discard), WithCategories(0))

	return l
}
