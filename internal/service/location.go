package service

import (
	"fmt"
	"runtime"
	"strings"
)

// Location records where a service was declared. It is carried by the
// controller for diagnostics only.
type Location struct {
	File   string
	Line   int
	Column int
	// Parent is the location that caused this one to be declared, if any.
	Parent *Location
}

// Caller returns the location of the function skip frames above the
// caller of Caller. Caller(0) is the line that called Caller.
func Caller(skip int) *Location {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return nil
	}
	return &Location{File: file, Line: line}
}

// String renders the location as file:line[:column], followed by the chain of
// parent locations.
func (l *Location) String() string {
	if l == nil {
		return "<unknown>"
	}
	var b strings.Builder
	for cur := l; cur != nil; cur = cur.Parent {
		if cur != l {
			b.WriteString(" (from ")
		}
		b.WriteString(cur.File)
		if cur.Line > 0 {
			fmt.Fprintf(&b, ":%d", cur.Line)
			if cur.Column > 0 {
				fmt.Fprintf(&b, ":%d", cur.Column)
			}
		}
	}
	for cur := l.Parent; cur != nil; cur = cur.Parent {
		b.WriteString(")")
	}
	return b.String()
}
