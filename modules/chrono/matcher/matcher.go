// Package matcher implements the path-matching predicate shared by tree
// diff and the working-copy walk (spec section 4.9): a Matches test plus
// a Visit hint that lets callers prune directory descent.
package matcher

import (
	"path"
	"strings"
)

// VisitKind tells a tree-walker how to treat a directory without
// descending into it first.
type VisitKind int

const (
	// VisitAll means every path under the directory matches.
	VisitAll VisitKind = iota
	// VisitSpecific means some paths under the directory might match;
	// the walker descends and tests each path. No matcher in this
	// module fills in VisitResult's Dirs or Files.
	VisitSpecific
	// VisitNothing means no path under the directory can match.
	VisitNothing
)

// VisitResult is the outcome of probing a directory before descending.
type VisitResult struct {
	Kind  VisitKind
	Dirs  map[string]bool
	Files map[string]bool
}

// Matcher is the universal path predicate. Implementations must be safe
// for concurrent use (tree diff streams may be consumed from multiple
// goroutines fanning out sub-trees).
type Matcher interface {
	Matches(p string) bool
	Visit(dir string) VisitResult
}

// Everything matches every path.
type everything struct{}

func (everything) Matches(string) bool      { return true }
func (everything) Visit(string) VisitResult { return VisitResult{Kind: VisitAll} }

var Everything Matcher = everything{}

// Nothing matches no path.
type nothing struct{}

func (nothing) Matches(string) bool      { return false }
func (nothing) Visit(string) VisitResult { return VisitResult{Kind: VisitNothing} }

var Nothing Matcher = nothing{}

// PrefixSet matches any path equal to, or nested under, one of a set of
// path prefixes. This is the matcher sparse patterns compile to (spec
// section 4.7).
type PrefixSet struct {
	prefixes []string
}

func NewPrefixSet(prefixes []string) *PrefixSet {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		cleaned = append(cleaned, strings.Trim(path.Clean(p), "/"))
	}
	return &PrefixSet{prefixes: cleaned}
}

func (m *PrefixSet) Matches(p string) bool {
	p = strings.Trim(p, "/")
	for _, prefix := range m.prefixes {
		if prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

func (m *PrefixSet) Visit(dir string) VisitResult {
	dir = strings.Trim(dir, "/")
	for _, prefix := range m.prefixes {
		if prefix == "" || dir == prefix || strings.HasPrefix(dir, prefix+"/") {
			return VisitResult{Kind: VisitAll}
		}
		if strings.HasPrefix(prefix, dir+"/") || dir == "" {
			// dir is an ancestor of this prefix: must descend to find it.
			return VisitResult{Kind: VisitSpecific}
		}
	}
	return VisitResult{Kind: VisitNothing}
}

// FileSet matches an explicit set of exact paths.
type FileSet struct {
	paths map[string]bool
}

func NewFileSet(paths []string) *FileSet {
	m := make(map[string]bool, len(paths))
	for _, p := range paths {
		m[strings.Trim(p, "/")] = true
	}
	return &FileSet{paths: m}
}

func (m *FileSet) Matches(p string) bool {
	return m.paths[strings.Trim(p, "/")]
}

func (m *FileSet) Visit(dir string) VisitResult {
	dir = strings.Trim(dir, "/")
	for p := range m.paths {
		if dir == "" || p == dir || strings.HasPrefix(p, dir+"/") {
			return VisitResult{Kind: VisitSpecific}
		}
	}
	return VisitResult{Kind: VisitNothing}
}

// Intersection matches paths that match both a and b.
type intersection struct{ a, b Matcher }

func Intersection(a, b Matcher) Matcher { return intersection{a, b} }

func (m intersection) Matches(p string) bool { return m.a.Matches(p) && m.b.Matches(p) }

func (m intersection) Visit(dir string) VisitResult {
	ra, rb := m.a.Visit(dir), m.b.Visit(dir)
	if ra.Kind == VisitNothing || rb.Kind == VisitNothing {
		return VisitResult{Kind: VisitNothing}
	}
	if ra.Kind == VisitAll {
		return rb
	}
	if rb.Kind == VisitAll {
		return ra
	}
	return VisitResult{Kind: VisitSpecific}
}

// Difference matches paths that match a but not b.
type difference struct{ a, b Matcher }

func Difference(a, b Matcher) Matcher { return difference{a, b} }

func (m difference) Matches(p string) bool { return m.a.Matches(p) && !m.b.Matches(p) }

func (m difference) Visit(dir string) VisitResult {
	ra := m.a.Visit(dir)
	if ra.Kind == VisitNothing {
		return VisitResult{Kind: VisitNothing}
	}
	rb := m.b.Visit(dir)
	if rb.Kind == VisitAll {
		return VisitResult{Kind: VisitNothing}
	}
	return VisitResult{Kind: VisitSpecific}
}

// Union matches paths that match either a or b.
type union struct{ a, b Matcher }

func Union(a, b Matcher) Matcher { return union{a, b} }

func (m union) Matches(p string) bool { return m.a.Matches(p) || m.b.Matches(p) }

func (m union) Visit(dir string) VisitResult {
	ra, rb := m.a.Visit(dir), m.b.Visit(dir)
	if ra.Kind == VisitAll || rb.Kind == VisitAll {
		return VisitResult{Kind: VisitAll}
	}
	if ra.Kind == VisitNothing && rb.Kind == VisitNothing {
		return VisitResult{Kind: VisitNothing}
	}
	return VisitResult{Kind: VisitSpecific}
}
