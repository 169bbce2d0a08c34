package hitl

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineWatcherDeliversLines(t *testing.T) {
	watcher := NewLineWatcher(strings.NewReader("first\n\n  second  \n"))
	watcher.Start(context.Background())

	var lines []string
	for line := range watcher.C() {
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestLineWatcherClosesOnEOF(t *testing.T) {
	watcher := NewLineWatcher(strings.NewReader(""))
	watcher.Start(context.Background())

	select {
	case _, ok := <-watcher.C():
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watcher channel did not close")
	}
}
