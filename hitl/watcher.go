package hitl

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// LineWatcher reads lines from a reader (typically stdin) in a background
// goroutine and delivers non-empty lines on a channel, so a streaming node
// can poll for user interjections between tokens.
type LineWatcher struct {
	reader io.Reader
	lines  chan string
}

// NewLineWatcher creates a watcher over the given reader.
func NewLineWatcher(reader io.Reader) *LineWatcher {
	return &LineWatcher{
		reader: reader,
		lines:  make(chan string, 8),
	}
}

// Start begins reading lines until the reader is exhausted or the context is
// canceled. It returns immediately.
func (w *LineWatcher) Start(ctx context.Context) {
	go func() {
		defer close(w.lines)
		scanner := bufio.NewScanner(w.reader)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case w.lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// C returns the channel of interjection lines.
func (w *LineWatcher) C() <-chan string {
	return w.lines
}
