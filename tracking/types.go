package tracking

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// TrackingMode represents the current mode of a tracking session
type TrackingMode int

const (
	ModeUninitialized TrackingMode = iota
	ModeTracking
)

func (m TrackingMode) String() string {
	switch m {
	case ModeUninitialized:
		return "UNINITIALIZED"
	case ModeTracking:
		return "TRACKING"
	default:
		return fmt.Sprintf("TrackingMode(%d)", int(m))
	}
}

// Outcome tells the caller what a ProcessFrame call produced
type Outcome int

const (
	// OutcomeAcquiring: no signal, tracking was not established when the frame arrived.
	// The frame was consumed by an acquisition attempt (check Result.Mode for success).
	OutcomeAcquiring Outcome = iota
	// OutcomeReacquiring: no signal, tracking was lost on this frame and re-acquisition ran.
	OutcomeReacquiring
	// OutcomeSignal: a breathing-signal sample was produced.
	OutcomeSignal
	// OutcomeSkipped: the frame carried no pixels and was ignored; Mode and
	// tracking state are unchanged.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAcquiring:
		return "acquiring"
	case OutcomeReacquiring:
		return "reacquiring"
	case OutcomeSignal:
		return "signal"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Reasons a frame produced no signal. All of them are recoverable: the
// session falls back to acquisition on the same or the next frame.
var (
	ErrDetectionFailed = errors.New("pose detection found no keypoints")
	ErrRegionInvalid   = errors.New("region of interest is degenerate")
	ErrNoFeatures      = errors.New("no trackable features in region")
	ErrTrackingLost    = errors.New("all tracked points lost")
)

// ROI is an axis-aligned rectangle in pixel coordinates.
// A valid ROI has Right > Left and Bottom > Top.
type ROI struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns Right - Left
func (r ROI) Width() int { return r.Right - r.Left }

// Height returns Bottom - Top
func (r ROI) Height() int { return r.Bottom - r.Top }

// Valid reports whether the rectangle has positive area
func (r ROI) Valid() bool { return r.Width() > 0 && r.Height() > 0 }

// Rect converts the ROI to an image.Rectangle
func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Contains reports whether p lies inside the ROI. The right and bottom
// edges are inclusive because corner positions are sub-pixel.
func (r ROI) Contains(p gocv.Point2f) bool {
	return p.X >= float32(r.Left) && p.X <= float32(r.Right) &&
		p.Y >= float32(r.Top) && p.Y <= float32(r.Bottom)
}

func (r ROI) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// Result is the per-frame output of a Session
type Result struct {
	Outcome Outcome
	// Mode is the session mode after the call
	Mode TrackingMode
	// Signal is the mean y of the retained points; only meaningful when Outcome == OutcomeSignal
	Signal float64
	// Reason explains an absent signal; nil when a signal was produced or acquisition succeeded
	Reason error
	// ROI and Points describe the tracking state after the call (zero/nil when uninitialized)
	ROI    ROI
	Points []gocv.Point2f
	// Lost is the number of points dropped by the validity filter on this frame
	Lost int
}

// HasSignal reports whether the result carries a signal sample
func (r Result) HasSignal() bool {
	return r.Outcome == OutcomeSignal
}
