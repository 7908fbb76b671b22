package commitindex

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
)

// segment is the append-only on-disk log backing an Index: one line per
// indexed commit, in the text, space-separated style the teacher uses
// for its reflog rather than a packed binary record.
//
//	<commit-id> <generation> <change-id> <author-unix> <committer-unix> <parents-or-dash>
type segment struct {
	f *os.File
	w *bufio.Writer
}

const segmentFileName = "entries.log"

func openSegment(dir string) (*segment, []*Entry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("commitindex: %w", err)
	}
	path := filepath.Join(dir, segmentFileName)
	existing, err := readSegment(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("commitindex: open segment: %w", err)
	}
	return &segment{f: f, w: bufio.NewWriter(f)}, existing, nil
}

func readSegment(path string) ([]*Entry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commitindex: read segment: %w", err)
	}
	defer f.Close()

	var out []*Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		e, err := parseSegmentLine(line)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("commitindex: read segment: %w", err)
	}
	return out, nil
}

func parseSegmentLine(line string) (*Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return nil, fmt.Errorf("commitindex: malformed segment line %q", line)
	}
	gen, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("commitindex: malformed generation in %q: %w", line, err)
	}
	authorUnix, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("commitindex: malformed author time in %q: %w", line, err)
	}
	committerUnix, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("commitindex: malformed committer time in %q: %w", line, err)
	}
	e := &Entry{
		CommitID:      ids.New(fields[0]),
		Generation:    gen,
		ChangeID:      object.NewChangeID(fields[2]),
		AuthorTime:    time.Unix(authorUnix, 0).UTC(),
		CommitterTime: time.Unix(committerUnix, 0).UTC(),
	}
	if fields[5] != "-" {
		for _, p := range strings.Split(fields[5], ",") {
			e.Parents = append(e.Parents, ids.New(p))
		}
	}
	return e, nil
}

func (s *segment) append(e *Entry) error {
	parents := "-"
	if len(e.Parents) > 0 {
		ss := make([]string, len(e.Parents))
		for i, p := range e.Parents {
			ss[i] = p.String()
		}
		parents = strings.Join(ss, ",")
	}
	line := fmt.Sprintf("%s %d %s %d %d %s\n",
		e.CommitID.String(), e.Generation, e.ChangeID.String(),
		e.AuthorTime.Unix(), e.CommitterTime.Unix(), parents)
	if _, err := s.w.WriteString(line); err != nil {
		return fmt.Errorf("commitindex: append segment: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("commitindex: append segment: %w", err)
	}
	return s.f.Sync()
}

func (s *segment) close() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.f.Close()
}
