package detection

import (
	"strings"
	"sync"
)

// stderrTail keeps the last lines a worker wrote to stderr so a crash can
// be reported with its cause
type stderrTail struct {
	lines    []string
	maxLines int
	index    int
	full     bool
	mutex    sync.RWMutex
}

func newStderrTail(maxLines int) *stderrTail {
	return &stderrTail{
		lines:    make([]string, maxLines),
		maxLines: maxLines,
	}
}

func (t *stderrTail) add(line string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.lines[t.index] = line
	t.index = (t.index + 1) % t.maxLines
	if t.index == 0 {
		t.full = true
	}
}

// recent returns the stored lines, oldest first
func (t *stderrTail) recent() []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.full {
		return append([]string(nil), t.lines[:t.index]...)
	}
	out := make([]string, 0, t.maxLines)
	out = append(out, t.lines[t.index:]...)
	return append(out, t.lines[:t.index]...)
}

// String joins the recent lines for error messages
func (t *stderrTail) String() string {
	return strings.Join(t.recent(), " | ")
}
