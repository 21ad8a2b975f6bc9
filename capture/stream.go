package capture

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Stream reads a Source on its own goroutine. When the consumer falls
// behind, frames are dropped instead of queued so the consumer always
// sees recent frames.
type Stream struct {
	frames chan Frame
	errs   chan error
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewStream starts reading src. The caller must call Stop before closing src.
func NewStream(src Source, buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	s := &Stream{
		frames: make(chan Frame, buffer),
		errs:   make(chan error, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run(src)
	return s
}

// Frames is closed once the reader has returned
func (s *Stream) Frames() <-chan Frame { return s.frames }

// Err receives the read error that ended the stream, if any
func (s *Stream) Err() <-chan error { return s.errs }

func (s *Stream) run(src Source) {
	defer close(s.done)
	defer close(s.frames)

	sequence := int64(0)
	dropped := 0
	for {
		select {
		case <-s.quit:
			return
		default:
		}

		img := gocv.NewMat()
		if err := src.Read(&img); err != nil {
			img.Close()
			s.errs <- err
			return
		}

		select {
		case s.frames <- Frame{Mat: img, Sequence: sequence, Timestamp: time.Now()}:
			sequence++
		case <-s.quit:
			img.Close()
			return
		default:
			img.Close()
			dropped++
			if dropped%100 == 0 {
				debugMsgVerbose("CAPTURE", fmt.Sprintf("Dropped %d frames, processing is slower than capture", dropped))
			}
		}
	}
}

// Stop ends the reader, waits until it has left Read and releases frames
// that were never received. It may be called more than once.
func (s *Stream) Stop() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
	for f := range s.frames {
		f.Mat.Close()
	}
}
