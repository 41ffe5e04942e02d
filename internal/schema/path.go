package schema

import (
	"fmt"
	"strings"
)

// RecordPath addresses a record in the hierarchical record store.
// The canonical form is "/" for the root and "/seg/seg" otherwise.
type RecordPath string

// Protocol is an opaque tag constraining discovery to records of one schema.
type Protocol string

const (
	// PhotoProtocol tags a single encoded photo record.
	PhotoProtocol Protocol = "PhotoV1"
	// PhotosProtocol tags an album record whose children are photos.
	PhotosProtocol Protocol = "PhotosV1"
)

// Root returns the root path.
func Root() RecordPath {
	return "/"
}

// ParsePath normalizes s into a RecordPath. Empty segments are dropped, so
// "a//b/" and "/a/b" parse to the same path.
func ParsePath(s string) (RecordPath, error) {
	if strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("record path %q contains NUL", s)
	}
	return Root().Join(strings.Split(s, "/")...), nil
}

// MustParsePath is ParsePath for constants and tests.
func MustParsePath(s string) RecordPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Join appends segments to p. Segments containing "/" are split.
func (p RecordPath) Join(segs ...string) RecordPath {
	all := p.Segments()
	for _, seg := range segs {
		for _, part := range strings.Split(seg, "/") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			all = append(all, part)
		}
	}
	if len(all) == 0 {
		return Root()
	}
	return RecordPath("/" + strings.Join(all, "/"))
}

// Segments returns the path components, nil for the root.
func (p RecordPath) Segments() []string {
	var segs []string
	for _, part := range strings.Split(string(p), "/") {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return segs
}

// IsRoot reports whether p is the root path.
func (p RecordPath) IsRoot() bool {
	return len(p.Segments()) == 0
}

// Parent returns the enclosing path. The parent of the root is the root.
func (p RecordPath) Parent() RecordPath {
	segs := p.Segments()
	if len(segs) <= 1 {
		return Root()
	}
	return Root().Join(segs[:len(segs)-1]...)
}

// Base returns the last segment, or "" for the root.
func (p RecordPath) Base() string {
	segs := p.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// String implements fmt.Stringer.
func (p RecordPath) String() string {
	if p == "" {
		return "/"
	}
	return string(p)
}

// Compare orders paths segment by segment. It returns -1, 0 or +1.
func Compare(a, b RecordPath) int {
	as, bs := a.Segments(), b.Segments()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}
