package gitbackend

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TreeEntry is one row of a git tree object: a file mode, a path
// component, and the hex SHA-1 of the object it names.
type TreeEntry struct {
	Mode string
	Name string
	SHA  string
}

const (
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
	ModeTree       = "40000"
	ModeSubmodule  = "160000"
)

// EncodeTree renders entries in git's canonical tree format: entries
// sorted the way git compares them (a directory name sorts as if
// suffixed with "/"), each row "<mode> <name>\0<20 raw sha bytes>".
func EncodeTree(entries []TreeEntry) ([]byte, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return treeSortKey(sorted[i]) < treeSortKey(sorted[j])
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		raw, err := hex.DecodeString(e.SHA)
		if err != nil || len(raw) != 20 {
			return nil, fmt.Errorf("gitbackend: invalid tree entry sha %q", e.SHA)
		}
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func treeSortKey(e TreeEntry) string {
	if e.Mode == ModeTree {
		return e.Name + "/"
	}
	return e.Name
}

// DecodeTree parses the payload of a git tree object.
func DecodeTree(content []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for len(content) > 0 {
		sp := bytes.IndexByte(content, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("gitbackend: malformed tree entry: no mode separator")
		}
		mode := string(content[:sp])
		rest := content[sp+1:]
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("gitbackend: malformed tree entry: no name terminator")
		}
		name := string(rest[:nul])
		shaStart := rest[nul+1:]
		if len(shaStart) < 20 {
			return nil, fmt.Errorf("gitbackend: malformed tree entry: truncated sha")
		}
		sha := hex.EncodeToString(shaStart[:20])
		entries = append(entries, TreeEntry{Mode: mode, Name: name, SHA: sha})
		content = shaStart[20:]
	}
	return entries, nil
}

// Commit is a git commit object's parsed fields.
type Commit struct {
	Tree      string
	Parents   []string
	Author    string
	Committer string
	Message   string
}

// EncodeCommit renders c in git's canonical commit format.
func EncodeCommit(c Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// DecodeCommit parses the payload of a git commit object.
func DecodeCommit(content []byte) (Commit, error) {
	text := string(content)
	headerEnd := strings.Index(text, "\n\n")
	if headerEnd < 0 {
		return Commit{}, fmt.Errorf("gitbackend: malformed commit: no header/body separator")
	}
	var c Commit
	for _, line := range strings.Split(text[:headerEnd], "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return Commit{}, fmt.Errorf("gitbackend: malformed commit header line %q", line)
		}
		switch key {
		case "tree":
			c.Tree = value
		case "parent":
			c.Parents = append(c.Parents, value)
		case "author":
			c.Author = value
		case "committer":
			c.Committer = value
		}
	}
	c.Message = text[headerEnd+2:]
	return c, nil
}

// formatSignature renders name/email/unix-seconds/offset-minutes the
// way git's author/committer lines do: "Name <email> <unixts> +hhmm".
func formatSignature(name, email string, unixSeconds int64, offsetMinutes int) string {
	sign := "+"
	off := offsetMinutes
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("%s <%s> %d %s%02d%02d", name, email, unixSeconds, sign, off/60, off%60)
}

// parseSignature is formatSignature's inverse, tolerant of the trailing
// fields being absent (defaults to a zero offset).
func parseSignature(s string) (name, email string, unixSeconds int64, offsetMinutes int, err error) {
	lt := strings.IndexByte(s, '<')
	gt := strings.IndexByte(s, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return "", "", 0, 0, fmt.Errorf("gitbackend: malformed signature %q", s)
	}
	name = strings.TrimSpace(s[:lt])
	email = s[lt+1 : gt]
	fields := strings.Fields(s[gt+1:])
	if len(fields) < 1 {
		return "", "", 0, 0, fmt.Errorf("gitbackend: malformed signature %q", s)
	}
	unixSeconds, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("gitbackend: malformed signature timestamp in %q: %w", s, err)
	}
	if len(fields) >= 2 {
		offsetMinutes, err = parseOffset(fields[1])
		if err != nil {
			return "", "", 0, 0, err
		}
	}
	return name, email, unixSeconds, offsetMinutes, nil
}

func parseOffset(s string) (int, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return 0, fmt.Errorf("gitbackend: malformed offset %q", s)
	}
	hh, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, err
	}
	mm, err := strconv.Atoi(s[3:5])
	if err != nil {
		return 0, err
	}
	minutes := hh*60 + mm
	if s[0] == '-' {
		minutes = -minutes
	}
	return minutes, nil
}
