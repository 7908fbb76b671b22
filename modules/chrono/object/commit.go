package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/ids"
)

var commitMagic = []byte("CCMT\x01")

// Signature is an author or committer identity and timestamp, grounded
// on the teacher's git-compatible signature encoding but carrying an
// explicit UTC offset in minutes rather than a formatted timezone
// string, per spec section 3.2.
type Signature struct {
	Name          string
	Email         string
	When          time.Time
	OffsetMinutes int
}

func (s Signature) String() string {
	sign := "+"
	off := s.OffsetMinutes
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("%s <%s> %d %s%02d%02d", s.Name, s.Email, s.When.Unix(), sign, off/60, off%60)
}

func decodeSignature(s string) (Signature, error) {
	open := strings.LastIndexByte(s, '<')
	closeIdx := strings.LastIndexByte(s, '>')
	if open == -1 || closeIdx == -1 || closeIdx < open {
		return Signature{}, fmt.Errorf("object: malformed signature %q", s)
	}
	name := strings.TrimSpace(s[:open])
	email := s[open+1 : closeIdx]
	rest := strings.TrimSpace(s[closeIdx+1:])
	fields := strings.Fields(rest)
	sig := Signature{Name: name, Email: email}
	if len(fields) >= 1 {
		if ts, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			sig.When = time.Unix(ts, 0).UTC()
		}
	}
	if len(fields) >= 2 && len(fields[1]) == 5 {
		tz := fields[1]
		sign := 1
		if tz[0] == '-' {
			sign = -1
		}
		hh, _ := strconv.Atoi(tz[1:3])
		mm, _ := strconv.Atoi(tz[3:5])
		sig.OffsetMinutes = sign * (hh*60 + mm)
	}
	return sig, nil
}

// Commit is an immutable snapshot plus metadata, per spec section 3.2.
// Tree holds the resolved tree id; when the commit's tree is an
// unresolved merge, MergedTree holds the odd-length (>1) sequence of
// tree ids instead and Tree is the zero hash.
type Commit struct {
	Hash ids.Hash

	Parents      []ids.Hash
	Tree         ids.Hash
	MergedTree   []ids.Hash
	Author       Signature
	Committer    Signature
	ChangeID     ChangeID
	Description  string
	Predecessors []ids.Hash
}

// IsMergedTree reports whether the commit's tree is an unresolved merge.
func (c *Commit) IsMergedTree() bool { return len(c.MergedTree) > 1 }

// TreeIDs returns the single- or multi-element tree-id sequence this
// commit's tree resolves from.
func (c *Commit) TreeIDs() []ids.Hash {
	if c.IsMergedTree() {
		return c.MergedTree
	}
	return []ids.Hash{c.Tree}
}

// Encode serialises the commit canonically: parents, tree(s), author,
// committer, change id, predecessors, then the free-text description.
func (c *Commit) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(commitMagic)
	if c.IsMergedTree() {
		ss := make([]string, len(c.MergedTree))
		for i, t := range c.MergedTree {
			ss[i] = t.String()
		}
		fmt.Fprintf(&buf, "tree-merge %s\n", strings.Join(ss, ","))
	} else {
		fmt.Fprintf(&buf, "tree %s\n", c.Tree.String())
	}
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p.String())
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author.String())
	fmt.Fprintf(&buf, "committer %s\n", c.Committer.String())
	fmt.Fprintf(&buf, "change %s\n", c.ChangeID.String())
	for _, p := range c.Predecessors {
		fmt.Fprintf(&buf, "predecessor %s\n", p.String())
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Description)
	return buf.Bytes()
}

// Decode parses the canonical form written by Encode. hash is the
// caller-supplied id this payload was read under (the store does not
// re-verify it; callers that need that guarantee should re-hash).
func Decode(hash ids.Hash, payload []byte) (*Commit, error) {
	if !bytes.HasPrefix(payload, commitMagic) {
		return nil, fmt.Errorf("object: not a commit payload")
	}
	body := string(payload[len(commitMagic):])
	headerEnd := strings.Index(body, "\n\n")
	var header, message string
	if headerEnd == -1 {
		header = body
	} else {
		header = body[:headerEnd]
		message = body[headerEnd+2:]
	}
	c := &Commit{Hash: hash, Description: message}
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp == -1 {
			continue
		}
		key, val := line[:sp], line[sp+1:]
		switch key {
		case "tree":
			c.Tree = ids.New(val)
		case "tree-merge":
			for _, part := range strings.Split(val, ",") {
				c.MergedTree = append(c.MergedTree, ids.New(part))
			}
		case "parent":
			c.Parents = append(c.Parents, ids.New(val))
		case "author":
			sig, err := decodeSignature(val)
			if err != nil {
				return nil, err
			}
			c.Author = sig
		case "committer":
			sig, err := decodeSignature(val)
			if err != nil {
				return nil, err
			}
			c.Committer = sig
		case "change":
			c.ChangeID = NewChangeID(val)
		case "predecessor":
			c.Predecessors = append(c.Predecessors, ids.New(val))
		}
	}
	return c, nil
}

// Subject returns the first line of the description.
func (c *Commit) Subject() string {
	if i := strings.IndexAny(c.Description, "\r\n"); i != -1 {
		return c.Description[:i]
	}
	return c.Description
}

// RootCommitID is the fixed, well-known id of the synthetic root commit
// (spec section 3.3), the zero Hash: no parents, empty tree, always
// visible.
var RootCommitID = ids.Zero

// NewRootCommit constructs the synthetic root commit.
func NewRootCommit() *Commit {
	return &Commit{
		Hash:     RootCommitID,
		Parents:  nil,
		Tree:     EmptyTreeID,
		ChangeID: ZeroChangeID,
	}
}
