// Package trace wraps logrus the way the rest of this module's ambient
// logging is expected to be wrapped: every wrapped error also logs its
// call site, and a Tracker gives callers cheap, debug-gated step timing.
package trace

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func location(skip int) (string, int) {
	pc, _, line, ok := runtime.Caller(skip)
	if !ok {
		return "?", line
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?", line
	}
	return fn.Name(), line
}

// Errorf logs at Error level with the caller's location and returns a
// plain error carrying the same message.
func Errorf(format string, a ...any) error {
	fn, line := location(2)
	msg := fmt.Sprintf(format, a...)
	logrus.Errorf("%s:%d %s", fn, line, msg)
	return errors.New(msg)
}

// Wrap logs err at Error level with the caller's location and returns it
// unchanged, so callers can both log and propagate in one expression.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	fn, line := location(2)
	logrus.Errorf("%s:%d %v", fn, line, err)
	return err
}

// Tracker emits step timings to stderr when debug mode is enabled; it is
// a no-op otherwise so it is cheap to leave wired into hot paths.
type Tracker struct {
	debug bool
	last  time.Time
}

func NewTracker(debug bool) *Tracker {
	return &Tracker{debug: debug, last: time.Now()}
}

func (t *Tracker) StepNext(format string, a ...any) {
	if !t.debug {
		return
	}
	s := fmt.Sprintf(format, a...)
	now := time.Now()
	fmt.Fprintf(os.Stderr, "\x1b[35m* %s use time: %v\x1b[0m\n", strings.Trim(s, "\n"), now.Sub(t.last))
	t.last = now
}
