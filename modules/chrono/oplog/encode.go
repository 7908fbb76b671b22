package oplog

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chronoscope/chrono/modules/chrono/conflict"
	"github.com/chronoscope/chrono/modules/chrono/ids"
)

var (
	viewMagic      = []byte("CVIW\x01")
	operationMagic = []byte("COPS\x01")
)

func encodeOptionalCommit(c OptionalCommit) string {
	if c == nil {
		return "-"
	}
	return c.String()
}

func decodeOptionalCommit(s string) OptionalCommit {
	if s == "-" {
		return nil
	}
	h := ids.New(s)
	return &h
}

func encodePointerMerge(w *bytes.Buffer, tag, name string, m conflict.Merge[OptionalCommit]) {
	values := m.Values()
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = encodeOptionalCommit(v)
	}
	fmt.Fprintf(w, "%s %s %d %s\n", tag, name, len(values), strings.Join(fields, ","))
}

func decodePointerMerge(fields []string) (string, conflict.Merge[OptionalCommit], error) {
	if len(fields) != 3 {
		return "", conflict.Merge[OptionalCommit]{}, fmt.Errorf("oplog: malformed pointer line %v", fields)
	}
	name := fields[0]
	count, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", conflict.Merge[OptionalCommit]{}, fmt.Errorf("oplog: malformed pointer count: %w", err)
	}
	var parts []string
	if count > 0 {
		parts = strings.Split(fields[2], ",")
	}
	if len(parts) != count {
		return "", conflict.Merge[OptionalCommit]{}, fmt.Errorf("oplog: pointer count mismatch for %s", name)
	}
	values := make([]OptionalCommit, count)
	for i, p := range parts {
		values[i] = decodeOptionalCommit(p)
	}
	m, err := conflict.New(values)
	if err != nil {
		return "", conflict.Merge[OptionalCommit]{}, err
	}
	return name, m, nil
}

// Encode serialises a view canonically: head list, then workspace,
// branch, tag and git-ref lines in name order for determinism.
func (v *View) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(viewMagic)
	heads := "-"
	if len(v.Heads) > 0 {
		ss := make([]string, len(v.Heads))
		for i, h := range v.Heads {
			ss[i] = h.String()
		}
		heads = strings.Join(ss, ",")
	}
	fmt.Fprintf(&buf, "heads %s\n", heads)

	for _, name := range sortedKeys(v.WorkingCopies) {
		p := v.WorkingCopies[name]
		fmt.Fprintf(&buf, "workspace %s %s %d\n", name, p.Commit.String(), p.EndTime.Unix())
	}
	for _, name := range sortedMergeKeys(v.Branches) {
		encodePointerMerge(&buf, "branch", name, v.Branches[name])
	}
	for _, name := range sortedMergeKeys(v.Tags) {
		encodePointerMerge(&buf, "tag", name, v.Tags[name])
	}
	for _, name := range sortedMergeKeys(v.GitRefs) {
		encodePointerMerge(&buf, "gitref", name, v.GitRefs[name])
	}
	return buf.Bytes()
}

func sortedKeys(m map[string]WorkingCopyPointer) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedMergeKeys(m map[string]conflict.Merge[OptionalCommit]) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DecodeView parses the canonical form written by Encode.
func DecodeView(payload []byte) (*View, error) {
	if !bytes.HasPrefix(payload, viewMagic) {
		return nil, fmt.Errorf("oplog: not a view payload")
	}
	v := NewView()
	body := string(payload[len(viewMagic):])
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "heads":
			if fields[1] != "-" {
				for _, h := range strings.Split(fields[1], ",") {
					v.Heads = append(v.Heads, ids.New(h))
				}
			}
		case "workspace":
			if len(fields) != 4 {
				return nil, fmt.Errorf("oplog: malformed workspace line %q", line)
			}
			end, err := strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("oplog: malformed workspace end time: %w", err)
			}
			v.WorkingCopies[fields[1]] = WorkingCopyPointer{
				Commit:  ids.New(fields[2]),
				EndTime: time.Unix(end, 0).UTC(),
			}
		case "branch", "tag", "gitref":
			name, m, err := decodePointerMerge(fields[1:])
			if err != nil {
				return nil, err
			}
			switch fields[0] {
			case "branch":
				v.Branches[name] = m
			case "tag":
				v.Tags[name] = m
			case "gitref":
				v.GitRefs[name] = m
			}
		default:
			return nil, fmt.Errorf("oplog: unknown view line tag %q", fields[0])
		}
	}
	return v, nil
}

// Encode serialises an operation canonically.
func (op *Operation) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(operationMagic)
	fmt.Fprintf(&buf, "view %s\n", op.ViewID.String())
	for _, p := range op.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p.String())
	}
	fmt.Fprintf(&buf, "start %d\n", op.Start.Unix())
	fmt.Fprintf(&buf, "end %d\n", op.End.Unix())
	buf.WriteByte('\n')
	buf.WriteString(op.Description)
	return buf.Bytes()
}

// DecodeOperation parses the canonical form written by Encode. id is the
// caller-supplied id this payload was read under.
func DecodeOperation(id ids.Hash, payload []byte) (*Operation, error) {
	if !bytes.HasPrefix(payload, operationMagic) {
		return nil, fmt.Errorf("oplog: not an operation payload")
	}
	body := string(payload[len(operationMagic):])
	headerEnd := strings.Index(body, "\n\n")
	var header, desc string
	if headerEnd == -1 {
		header = body
	} else {
		header = body[:headerEnd]
		desc = body[headerEnd+2:]
	}
	op := &Operation{ID: id, Description: desc}
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
		case "view":
			op.ViewID = ids.New(val)
		case "parent":
			op.Parents = append(op.Parents, ids.New(val))
		case "start":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("oplog: malformed start time: %w", err)
			}
			op.Start = time.Unix(ts, 0).UTC()
		case "end":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("oplog: malformed end time: %w", err)
			}
			op.End = time.Unix(ts, 0).UTC()
		}
	}
	return op, nil
}
