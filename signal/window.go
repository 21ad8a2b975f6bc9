// Package signal keeps the recent respiration samples and renders them.
package signal

import "sync"

// DefaultCapacity matches the length of the on-screen trace
const DefaultCapacity = 100

// Sample is one signal value taken from a processed frame
type Sample struct {
	Frame    int64   `json:"frame"`
	Value    float64 `json:"value"`
	Smoothed float64 `json:"smoothed"`
}

// Window is a fixed-capacity circular buffer of samples. Once full, each
// Push evicts the oldest sample. It is safe for concurrent use.
type Window struct {
	samples  []Sample
	capacity int
	index    int
	full     bool
	mutex    sync.RWMutex
}

// NewWindow creates a window holding up to capacity samples
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		samples:  make([]Sample, capacity),
		capacity: capacity,
	}
}

// Push stores a new sample
func (w *Window) Push(s Sample) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.samples[w.index] = s
	w.index = (w.index + 1) % w.capacity
	if w.index == 0 {
		w.full = true
	}
}

// Samples returns a copy of the stored samples, oldest first
func (w *Window) Samples() []Sample {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	if !w.full {
		out := make([]Sample, w.index)
		copy(out, w.samples[:w.index])
		return out
	}

	out := make([]Sample, 0, w.capacity)
	out = append(out, w.samples[w.index:]...)
	out = append(out, w.samples[:w.index]...)
	return out
}

// Last returns the newest sample. ok is false while the window is empty.
func (w *Window) Last() (s Sample, ok bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	if !w.full && w.index == 0 {
		return Sample{}, false
	}
	return w.samples[(w.index-1+w.capacity)%w.capacity], true
}

// Len returns the number of stored samples
func (w *Window) Len() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	if w.full {
		return w.capacity
	}
	return w.index
}

// Cap returns the window capacity
func (w *Window) Cap() int { return w.capacity }

// Reset drops all samples
func (w *Window) Reset() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.index = 0
	w.full = false
}
