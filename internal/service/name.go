package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned when a name cannot be built from the given
// segments.
var ErrInvalidName = errors.New("invalid service name")

// Name is an immutable, hierarchical service identifier such as
// "app.db.primary". Names are comparable and can be used as map keys.
// The zero Name has no segments and is never a valid service name.
type Name struct {
	// canonical holds the escaped, dot joined segments.
	canonical string
}

// NewName builds a name from its segments. Segments may contain any
// characters but must not be empty.
func NewName(segments ...string) (Name, error) {
	if len(segments) == 0 {
		return Name{}, fmt.Errorf("%w: no segments", ErrInvalidName)
	}
	var b strings.Builder
	for i, seg := range segments {
		if seg == "" {
			return Name{}, fmt.Errorf("%w: empty segment at position %d", ErrInvalidName, i)
		}
		if i > 0 {
			b.WriteByte('.')
		}
		writeEscaped(&b, seg)
	}
	return Name{canonical: b.String()}, nil
}

// MustName is like NewName but panics on error. It is intended for
// package level variables and tests.
func MustName(segments ...string) Name {
	n, err := NewName(segments...)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseName parses the canonical dotted form produced by Name.String.
// A literal dot or backslash inside a segment is escaped with a backslash.
func ParseName(s string) (Name, error) {
	segments, err := splitCanonical(s)
	if err != nil {
		return Name{}, err
	}
	return NewName(segments...)
}

// Append returns a child name with the given segments added.
func (n Name) Append(segments ...string) (Name, error) {
	return NewName(append(n.Segments(), segments...)...)
}

// Segments returns a copy of the name's segments.
func (n Name) Segments() []string {
	if n.canonical == "" {
		return nil
	}
	// The canonical form was produced by NewName and always splits cleanly.
	segments, _ := splitCanonical(n.canonical)
	return segments
}

// Parent returns the name without its last segment. The second result is
// false for single segment and zero names.
func (n Name) Parent() (Name, bool) {
	segments := n.Segments()
	if len(segments) < 2 {
		return Name{}, false
	}
	parent, err := NewName(segments[:len(segments)-1]...)
	return parent, err == nil
}

// IsParentOf reports whether n is a strict ancestor of other.
func (n Name) IsParentOf(other Name) bool {
	mine, theirs := n.Segments(), other.Segments()
	if len(mine) == 0 || len(mine) >= len(theirs) {
		return false
	}
	for i := range mine {
		if mine[i] != theirs[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether n is the zero Name.
func (n Name) IsZero() bool {
	return n.canonical == ""
}

// Compare orders names segment by segment.
func (n Name) Compare(other Name) int {
	a, b := n.Segments(), other.Segments()
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// String returns the canonical dotted form.
func (n Name) String() string {
	return n.canonical
}

func writeEscaped(b *strings.Builder, seg string) {
	for _, r := range seg {
		if r == '.' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
}

func splitCanonical(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidName)
	}
	var (
		segments []string
		cur      strings.Builder
		escaped  bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w: trailing escape in %q", ErrInvalidName, s)
	}
	return append(segments, cur.String()), nil
}
