package workingcopy

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the ignore file snapshot stacks along the descent,
// one per directory (spec section 4.7's ".gitignore-style ignore files
// stacked along the descent"), grounded on the teacher's
// plumbing/format/ignore package (zetaignore/gitignore/info-exclude
// stacking) collapsed to the one file kind this repo needs.
const IgnoreFileName = ".chronoignore"

// ignorePattern is one parsed line: a glob anchored at the directory it
// was read from (dir == "" for the workspace root), optionally negated.
type ignorePattern struct {
	dir     string
	glob    string
	negate  bool
	dirOnly bool
}

func parseIgnoreLine(dir, line string) (ignorePattern, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, "#") {
		return ignorePattern{}, false
	}
	p := ignorePattern{dir: dir}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	p.glob = line
	return p, true
}

func (p ignorePattern) matches(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	name := rel
	if p.dir != "" {
		if !strings.HasPrefix(rel, p.dir+"/") {
			return false
		}
		name = rel[len(p.dir)+1:]
	}
	if strings.Contains(p.glob, "/") {
		ok, _ := path.Match(p.glob, name)
		return ok
	}
	// a slash-free pattern matches the base name at any depth under dir,
	// the same convention .gitignore uses.
	ok, _ := path.Match(p.glob, path.Base(name))
	return ok
}

// Stack is an ordered list of ignore patterns accumulated while
// descending the working copy; later entries (deeper directories) take
// priority, matching the ascending-priority order the teacher's
// ReadPatterns documents.
type Stack struct {
	patterns []ignorePattern
}

// WithDir returns a new Stack extending s with patterns read from an
// ignore file directly under absDir (relDir is absDir's path relative
// to the workspace root, "" at the root). A missing ignore file leaves
// the stack unchanged.
func (s *Stack) WithDir(absDir, relDir string) (*Stack, error) {
	f, err := os.Open(filepath.Join(absDir, IgnoreFileName))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	next := &Stack{patterns: append([]ignorePattern(nil), s.patterns...)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p, ok := parseIgnoreLine(relDir, scanner.Text()); ok {
			next.patterns = append(next.patterns, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return next, nil
}

// Ignored reports whether rel (workspace-relative, "/"-separated) is
// ignored: the last pattern that matches wins, so a later negation can
// un-ignore an earlier match.
func (s *Stack) Ignored(rel string, isDir bool) bool {
	ignored := false
	for _, p := range s.patterns {
		if p.matches(rel, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}
