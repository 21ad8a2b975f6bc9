// Package capture reads BGR frames from cameras, video files and streams.
package capture

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned by Read once a file or stream has no more frames
var ErrEndOfStream = errors.New("end of stream")

// maxSkippedFrames bounds how many unusable frames Read discards in a row
const maxSkippedFrames = 30

// Frame is a captured image with its capture order and time
type Frame struct {
	Mat       gocv.Mat
	Sequence  int64
	Timestamp time.Time
}

// Source yields BGR frames
type Source interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// VideoSource wraps a gocv capture device or file
type VideoSource struct {
	input   string
	live    bool
	capture *gocv.VideoCapture
	stream  *Stream
}

// parseInput splits camera indices from file paths and URLs
func parseInput(input string) (device int, isDevice bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// isStream reports whether input is a network stream rather than a file
func isStream(input string) bool {
	return strings.Contains(input, "://")
}

// Open opens a camera ("0", "1", ...), a video file or a stream URL
func Open(input string) (*VideoSource, error) {
	if input == "" {
		return nil, fmt.Errorf("no input given")
	}

	if device, ok := parseInput(input); ok {
		debugMsg("CAPTURE", fmt.Sprintf("Opening camera %d", device))
		vc, err := gocv.OpenVideoCapture(device)
		if err != nil {
			return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
		}
		vc.Set(gocv.VideoCaptureBufferSize, 1)
		return &VideoSource{input: input, live: true, capture: vc}, nil
	}

	if isStream(input) {
		// Low latency RTSP over TCP
		os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", "rtsp_transport;tcp|buffer_size;65536|stimeout;5000000")
	} else if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}

	debugMsg("CAPTURE", fmt.Sprintf("Opening video source: %s", input))
	vc, err := gocv.VideoCaptureFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", input, err)
	}
	live := isStream(input)
	if live {
		vc.Set(gocv.VideoCaptureBufferSize, 1)
	}
	return &VideoSource{input: input, live: live, capture: vc}, nil
}

// Live reports whether frames arrive in real time (camera or stream)
func (vs *VideoSource) Live() bool { return vs.live }

// Input returns the string the source was opened with
func (vs *VideoSource) Input() string { return vs.input }

// FPS returns the rate reported by the backend, 0 when unknown
func (vs *VideoSource) FPS() float64 {
	return vs.capture.Get(gocv.VideoCaptureFPS)
}

// Read fills dst with the next 3-channel 8-bit frame. Empty or
// unexpected-format frames are skipped.
func (vs *VideoSource) Read(dst *gocv.Mat) error {
	for skipped := 0; skipped <= maxSkippedFrames; skipped++ {
		if ok := vs.capture.Read(dst); !ok {
			return ErrEndOfStream
		}
		if dst.Empty() {
			continue
		}
		if dst.Type() != gocv.MatTypeCV8UC3 || dst.Channels() != 3 {
			debugMsgVerbose("CAPTURE", fmt.Sprintf("Skipping frame of type %v", dst.Type()))
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %d unusable frames in a row", ErrEndOfStream, maxSkippedFrames+1)
}

// Stream starts reading frames on a goroutine. The stream is stopped by
// Close, before the capture itself is released.
func (vs *VideoSource) Stream(buffer int) *Stream {
	vs.stream = NewStream(vs, buffer)
	return vs.stream
}

// Close stops a running stream, then releases the capture
func (vs *VideoSource) Close() error {
	if vs.stream != nil {
		vs.stream.Stop()
	}
	if vs.capture == nil {
		return nil
	}
	return vs.capture.Close()
}
