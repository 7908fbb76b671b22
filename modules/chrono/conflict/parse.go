package conflict

import (
	"fmt"
	"strings"

	"github.com/chronoscope/chrono/modules/chrono/difftext"
)

// ErrMalformedMarkers is returned by ParseText when a conflict marker
// block is started but never properly closed.
type ErrMalformedMarkers struct {
	Reason string
}

func (e *ErrMalformedMarkers) Error() string {
	return fmt.Sprintf("conflict: malformed marker block: %s", e.Reason)
}

// ParseText parses materialized bytes back into a Merge[[]byte]. If no
// recognizable marker block is present, the whole input is treated as
// already resolved: Resolved(data), matching the fallback spec section
// 4.3 requires for text that was hand-edited into a conflict-free state.
func ParseText(data []byte) (Merge[[]byte], error) {
	text := string(data)
	if strings.HasPrefix(text, markerSide1+" Conflict (") {
		return parseMultiBase(text)
	}
	if !strings.Contains(text, markerSide1+" Side #1\n") {
		return Resolved(append([]byte(nil), data...)), nil
	}
	return parseSingleBase(text)
}

func parseSingleBase(text string) (Merge[[]byte], error) {
	lines := difftext.Lines(text)
	var side1, base, side2 strings.Builder
	state := 0 // 0=outside, 1=in side1, 2=in base, 3=in side2
	for _, line := range lines {
		switch {
		case line == markerSide1+" Side #1\n":
			if state != 0 {
				return Merge[[]byte]{}, &ErrMalformedMarkers{Reason: "nested conflict start"}
			}
			state = 1
		case line == markerBase+" Base\n":
			if state != 1 {
				return Merge[[]byte]{}, &ErrMalformedMarkers{Reason: "base marker out of place"}
			}
			state = 2
		case line == markerMid+"\n":
			if state != 2 {
				return Merge[[]byte]{}, &ErrMalformedMarkers{Reason: "mid marker out of place"}
			}
			state = 3
		case line == markerSide2+" Side #2\n":
			if state != 3 {
				return Merge[[]byte]{}, &ErrMalformedMarkers{Reason: "side #2 marker out of place"}
			}
			state = 0
		default:
			switch state {
			case 0:
				side1.WriteString(line)
				base.WriteString(line)
				side2.WriteString(line)
			case 1:
				side1.WriteString(line)
			case 2:
				base.WriteString(line)
			case 3:
				side2.WriteString(line)
			}
		}
	}
	if state != 0 {
		return Merge[[]byte]{}, &ErrMalformedMarkers{Reason: "unterminated conflict block"}
	}
	return New([][]byte{[]byte(side1.String()), []byte(base.String()), []byte(side2.String())})
}

func parseMultiBase(text string) (Merge[[]byte], error) {
	lines := difftext.Lines(text)
	if len(lines) == 0 {
		return Merge[[]byte]{}, &ErrMalformedMarkers{Reason: "empty multi-base block"}
	}
	// skip the header line, collect per-term content until the next
	// labeled marker line or the closing marker.
	var values [][]byte
	var cur strings.Builder
	flush := func() {
		values = append(values, []byte(cur.String()))
		cur.Reset()
	}
	inTerm := false
	for _, line := range lines[1:] {
		trimmed := strings.TrimRight(line, "\n")
		if strings.HasPrefix(trimmed, markerMid+" Side #") || strings.HasPrefix(trimmed, markerBase+" Base #") {
			if inTerm {
				flush()
			}
			inTerm = true
			continue
		}
		if strings.HasPrefix(trimmed, markerSide2+" Conflict ends") {
			if inTerm {
				flush()
			}
			return New(values)
		}
		cur.WriteString(line)
	}
	return Merge[[]byte]{}, &ErrMalformedMarkers{Reason: "unterminated multi-base block"}
}

// the side count embedded in the multi-base header is informational
// only; parseMultiBase recovers structure from the per-term labels
// instead of trusting the count, so a hand-edited header never desyncs
// parsing.
