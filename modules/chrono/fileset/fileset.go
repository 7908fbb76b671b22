// Package fileset parses the fileset DSL (spec section 4.9) and compiles
// it to a matcher.Matcher. Grammar:
//
//	expr   := term (('|' | '&' | '~') term)*
//	term   := '~' term | '(' expr ')' | primary
//	primary:= 'glob:' STR | 'regex:' STR | 'root-glob:' STR | 'all()' | 'none()'
//
// Tokenisation follows the same hand-rolled scanner shape used for the
// revset language (see modules/chrono/revset), grounded on the teacher's
// modules/gcfg/scanner token-reader idiom.
package fileset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/matcher"
)

// ParseError carries the byte offset of a syntactic error, per spec
// section 7's user-input error kind (source span for syntactic errors).
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fileset: %s (at offset %d)", e.Msg, e.Offset)
}

// Parse compiles a fileset expression into a matcher.
func Parse(src string) (matcher.Matcher, error) {
	p := &parser{src: src}
	p.next()
	m, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &ParseError{Offset: p.tok.pos, Msg: fmt.Sprintf("unexpected trailing input %q", p.tok.text)}
	}
	return m, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokUnion
	tokIntersect
	tokDifference
	tokNegate
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	src string
	pos int
	tok token
}

func (p *parser) errorf(pos int, format string, a ...any) error {
	return &ParseError{Offset: pos, Msg: fmt.Sprintf(format, a...)}
}

func (p *parser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.pos]
	switch c {
	case '(':
		p.pos++
		p.tok = token{kind: tokLParen, pos: start}
		return
	case ')':
		p.pos++
		p.tok = token{kind: tokRParen, pos: start}
		return
	case '|':
		p.pos++
		p.tok = token{kind: tokUnion, pos: start}
		return
	case '&':
		p.pos++
		p.tok = token{kind: tokIntersect, pos: start}
		return
	case '~':
		p.pos++
		// '~' is both unary negate and binary difference; the parser
		// disambiguates by position (prefix vs infix).
		p.tok = token{kind: tokNegate, pos: start}
		return
	case '"':
		p.pos++
		var sb strings.Builder
		for p.pos < len(p.src) && p.src[p.pos] != '"' {
			sb.WriteByte(p.src[p.pos])
			p.pos++
		}
		p.pos++ // closing quote
		p.tok = token{kind: tokString, text: sb.String(), pos: start}
		return
	}
	// identifier: letters, digits, ':', '.', '/', '_', '-', '*', '?', '['...']';
	// a quoted run inside it (glob:"*.md") is taken without its quotes,
	// and 'all'/'none' take a directly following "()".
	var sb strings.Builder
	for p.pos < len(p.src) && !strings.ContainsRune(" \t\n()|&~", rune(p.src[p.pos])) {
		if p.src[p.pos] == '"' {
			quoted, _, _ := strings.Cut(p.src[p.pos+1:], `"`)
			sb.WriteString(quoted)
			p.pos = min(p.pos+len(quoted)+2, len(p.src))
			continue
		}
		sb.WriteByte(p.src[p.pos])
		p.pos++
	}
	text := sb.String()
	if (text == "all" || text == "none") && strings.HasPrefix(p.src[p.pos:], "()") {
		text, p.pos = text+"()", p.pos+2
	}
	p.tok = token{kind: tokIdent, text: text, pos: start}
}

func (p *parser) parseExpr() (matcher.Matcher, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.kind {
		case tokUnion:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = matcher.Union(left, right)
		case tokIntersect:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = matcher.Intersection(left, right)
		case tokNegate:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = matcher.Difference(left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (matcher.Matcher, error) {
	switch p.tok.kind {
	case tokNegate:
		p.next()
		inner, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return matcher.Difference(matcher.Everything, inner), nil
	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf(p.tok.pos, "expected ')'")
		}
		p.next()
		return inner, nil
	case tokIdent, tokString:
		text := p.tok.text
		pos := p.tok.pos
		p.next()
		return compilePrimary(text, pos)
	default:
		return nil, p.errorf(p.tok.pos, "expected expression")
	}
}

func compilePrimary(text string, pos int) (matcher.Matcher, error) {
	switch {
	case text == "all()":
		return matcher.Everything, nil
	case text == "none()":
		return matcher.Nothing, nil
	case strings.HasPrefix(text, "glob:"):
		return newGlobMatcher(strings.TrimPrefix(text, "glob:"), false), nil
	case strings.HasPrefix(text, "root-glob:"):
		return newGlobMatcher(strings.TrimPrefix(text, "root-glob:"), true), nil
	case strings.HasPrefix(text, "regex:"):
		re, err := regexp.Compile(strings.TrimPrefix(text, "regex:"))
		if err != nil {
			return nil, &ParseError{Offset: pos, Msg: err.Error()}
		}
		return regexMatcher{re: re}, nil
	default:
		// bare path: treated like root-glob with no wildcard, i.e. an
		// exact path match (and anything nested under it, as a prefix).
		return newGlobMatcher(text, true), nil
	}
}

// globMatcher matches paths against a glob pattern. rooted patterns
// anchor at the fileset root; non-rooted patterns match the glob
// against the basename at any depth, same distinction as 'glob:' vs
// 'root-glob:' in spec section 4.9.
type globMatcher struct {
	pattern string
	rooted  bool
}

func newGlobMatcher(pattern string, rooted bool) globMatcher {
	return globMatcher{pattern: pattern, rooted: rooted}
}

func (g globMatcher) Matches(p string) bool {
	if g.rooted {
		ok, _ := filepath.Match(g.pattern, p)
		if ok {
			return true
		}
		// also match as a directory prefix so root-glob:dir/ matches
		// everything nested under dir.
		return strings.HasPrefix(p, strings.TrimSuffix(g.pattern, "/")+"/")
	}
	ok, _ := filepath.Match(g.pattern, filepath.Base(p))
	return ok
}

func (g globMatcher) Visit(dir string) matcher.VisitResult {
	if g.rooted {
		if strings.HasPrefix(g.pattern, dir+"/") || dir == "" {
			return matcher.VisitResult{Kind: matcher.VisitSpecific}
		}
		if ok, _ := filepath.Match(g.pattern, dir); ok {
			return matcher.VisitResult{Kind: matcher.VisitAll}
		}
		if strings.HasPrefix(dir, strings.TrimSuffix(g.pattern, "/")+"/") {
			return matcher.VisitResult{Kind: matcher.VisitAll}
		}
		return matcher.VisitResult{Kind: matcher.VisitNothing}
	}
	return matcher.VisitResult{Kind: matcher.VisitSpecific}
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (r regexMatcher) Matches(p string) bool { return r.re.MatchString(p) }

func (r regexMatcher) Visit(string) matcher.VisitResult {
	return matcher.VisitResult{Kind: matcher.VisitSpecific}
}
