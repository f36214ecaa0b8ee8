package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// spinnerFrames cycle on the status line while a resolution or install is
// in flight.
var spinnerFrames = []string{"⠋", "⠙", "⠸", "⠴", "⠦", "⠇"}

const spinnerInterval = 120 * time.Millisecond

// spinner animates a single status line on stderr. It is driven by exactly
// one goroutine started by startSpinner; halt (or cancellation of the parent
// context) ends the animation and clears the line.
type spinner struct {
	msg  string
	quit chan struct{}
	done chan struct{}
}

// startSpinner starts animating msg; the first frame is drawn after one
// spinnerInterval. The spinner stops on halt, succeed, fail, or when ctx is
// cancelled.
func startSpinner(ctx context.Context, msg string) *spinner {
	s := &spinner{
		msg:  msg,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.loop(ctx)
	return s
}

func (s *spinner) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			s.clear()
			return
		case <-s.quit:
			s.clear()
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.msg))
		}
	}
}

// halt stops the animation and blocks until the line is cleared.
// Safe to call more than once.
func (s *spinner) halt() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
}

// succeed stops the spinner and prints a success line in its place.
func (s *spinner) succeed(format string, args ...any) {
	s.halt()
	printSuccess(format, args...)
}

// fail stops the spinner and prints an error line in its place.
func (s *spinner) fail(format string, args ...any) {
	s.halt()
	printError(format, args...)
}

func (s *spinner) clear() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.msg)+3))
}
