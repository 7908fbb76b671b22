package revset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// matchPattern implements the four string-pattern kinds spec section
// 4.5 names (exact, glob, substring, regex) against a candidate string
// (a branch/tag name, or an author/committer/description field).
func matchPattern(pat Pattern, s string) (bool, error) {
	switch pat.Kind {
	case "exact", "":
		return s == pat.Value, nil
	case "substring":
		return strings.Contains(s, pat.Value), nil
	case "glob":
		ok, err := filepath.Match(pat.Value, s)
		if err != nil {
			return false, fmt.Errorf("revset: bad glob pattern %q: %w", pat.Value, err)
		}
		return ok, nil
	case "regex":
		re, err := regexp.Compile(pat.Value)
		if err != nil {
			return false, fmt.Errorf("revset: bad regex pattern %q: %w", pat.Value, err)
		}
		return re.MatchString(s), nil
	default:
		return false, fmt.Errorf("revset: unknown pattern kind %q", pat.Kind)
	}
}

// asPattern coerces an argument expression into a Pattern: a Pattern
// literal is used as-is, a bare Symbol's name is treated as an exact
// pattern (so author(bob) behaves like author(exact:"bob")), anything
// else is a type error.
func asPattern(e Expr) (Pattern, error) {
	switch v := e.(type) {
	case Pattern:
		return v, nil
	case Symbol:
		return Pattern{Kind: "exact", Value: v.Name}, nil
	default:
		return Pattern{}, fmt.Errorf("revset: expected a string pattern argument")
	}
}
