package tracking

import (
	"errors"
	"fmt"

	"respicam/detection"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyFrame is reported for frames with no pixel data; the session
// state is left untouched.
var ErrEmptyFrame = errors.New("empty frame")

// SessionConfig groups the tuning of all session components
type SessionConfig struct {
	ROI      ROIParams
	Features FeatureParams
	Flow     FlowParams
}

// DefaultSessionConfig returns the published defaults for every component
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ROI:      DefaultROIParams(),
		Features: DefaultFeatureParams(),
		Flow:     DefaultFlowParams(),
	}
}

// State is the data a session carries between frames while tracking
type State struct {
	ROI      ROI
	Features []gocv.Point2f
	prevGray gocv.Mat
}

func (st *State) close() {
	st.prevGray.Close()
}

// Session is the per-stream respiration tracker. It acquires a torso
// region from a pose estimate, then follows corner points in that region
// with optical flow until every point is lost, at which point it
// re-acquires. A Session is single-owner and not safe for concurrent use.
type Session struct {
	id       string
	cfg      SessionConfig
	locator  *Locator
	selector *Selector
	flow     FlowTracker

	state    *State // nil while uninitialized
	episodes int
	frames   int64
}

// NewSession creates an uninitialized session
func NewSession(detector detection.KeypointDetector, cfg SessionConfig) *Session {
	return &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		locator:  NewLocator(detector),
		selector: NewSelector(cfg.Features),
		flow:     NewLKTracker(cfg.Flow),
	}
}

// UseFlowTracker replaces the Lucas-Kanade tracker
func (s *Session) UseFlowTracker(t FlowTracker) {
	s.flow = t
}

// ID returns the unique session identifier used in logs
func (s *Session) ID() string { return s.id }

// Mode returns the current session mode
func (s *Session) Mode() TrackingMode {
	if s.state == nil {
		return ModeUninitialized
	}
	return ModeTracking
}

// Episodes returns how many times tracking has been (re-)established
func (s *Session) Episodes() int { return s.episodes }

// Snapshot returns a copy of the tracking state. ok is false while uninitialized.
func (s *Session) Snapshot() (roi ROI, features []gocv.Point2f, ok bool) {
	if s.state == nil {
		return ROI{}, nil, false
	}
	return s.state.ROI, clonePoints(s.state.Features), true
}

// Reset drops the tracking state so the next frame re-acquires
func (s *Session) Reset() {
	if s.state != nil {
		s.state.close()
		s.state = nil
	}
}

// Close releases the stored frame
func (s *Session) Close() error {
	s.Reset()
	return nil
}

// ProcessFrame advances the session by one BGR frame. Points and the ROI
// are drawn into frame while tracking; the returned Mat is frame itself.
func (s *Session) ProcessFrame(frame gocv.Mat) (Result, gocv.Mat) {
	s.frames++

	if frame.Empty() {
		return Result{Outcome: OutcomeSkipped, Mode: s.Mode(), Reason: ErrEmptyFrame}, frame
	}

	gray := toGray(frame)

	if s.state == nil {
		res := s.acquire(frame, gray)
		res.Outcome = OutcomeAcquiring
		return res, frame
	}

	next, valid := s.flow.Track(s.state.prevGray, gray, s.state.Features)
	goodNew := make([]gocv.Point2f, 0, len(s.state.Features))
	for i := range s.state.Features {
		if i < len(valid) && i < len(next) && valid[i] {
			goodNew = append(goodNew, next[i])
		}
	}
	lost := len(s.state.Features) - len(goodNew)

	if len(goodNew) > 0 {
		drawFeatures(&frame, goodNew)
		drawROI(&frame, s.state.ROI)

		signal := meanY(goodNew)
		s.state.Features = goodNew
		s.state.prevGray.Close()
		s.state.prevGray = gray

		if lost > 0 {
			debugMsgVerbose("TRACK", fmt.Sprintf("Dropped %d points, %d remain", lost, len(goodNew)), s.id)
		}
		return Result{
			Outcome: OutcomeSignal,
			Mode:    ModeTracking,
			Signal:  signal,
			ROI:     s.state.ROI,
			Points:  clonePoints(goodNew),
			Lost:    lost,
		}, frame
	}

	debugMsg("TRACK", fmt.Sprintf("All %d points lost after frame %d, re-acquiring", lost, s.frames), s.id)
	s.Reset()
	res := s.acquire(frame, gray)
	res.Outcome = OutcomeReacquiring
	res.Lost = lost
	if res.Reason != nil {
		res.Reason = errors.Join(ErrTrackingLost, res.Reason)
	} else {
		res.Reason = ErrTrackingLost
	}
	return res, frame
}

// acquire locates the ROI and selects features. It takes ownership of
// gray: on success gray becomes the stored previous frame, on failure it
// is released.
func (s *Session) acquire(frame, gray gocv.Mat) Result {
	p := s.cfg.ROI
	roi, err := s.locator.Locate(frame, p.SizeX, p.SizeY, p.ShiftX, p.ShiftY)
	if err != nil {
		gray.Close()
		debugMsgVerbose("ACQUIRE", fmt.Sprintf("ROI not found: %v", err), s.id)
		return Result{Mode: ModeUninitialized, Reason: err}
	}

	features, err := s.selector.Select(gray, roi)
	if err != nil {
		gray.Close()
		debugMsgVerbose("ACQUIRE", fmt.Sprintf("No features in %s: %v", roi, err), s.id)
		return Result{Mode: ModeUninitialized, Reason: err, ROI: roi}
	}

	s.state = &State{ROI: roi, Features: features, prevGray: gray}
	s.episodes++
	debugMsg("ACQUIRE", fmt.Sprintf("Tracking episode %d: ROI %s with %d features", s.episodes, roi, len(features)), s.id)

	return Result{
		Mode:   ModeTracking,
		ROI:    roi,
		Points: clonePoints(features),
	}
}

// toGray returns a single channel copy of a BGR or grayscale frame
func toGray(frame gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 4:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}
	return gray
}

// meanY is the breathing signal: the mean vertical position of the points
func meanY(pts []gocv.Point2f) float64 {
	ys := make([]float64, len(pts))
	for i, p := range pts {
		ys[i] = float64(p.Y)
	}
	return stat.Mean(ys, nil)
}

func clonePoints(pts []gocv.Point2f) []gocv.Point2f {
	if pts == nil {
		return nil
	}
	out := make([]gocv.Point2f, len(pts))
	copy(out, pts)
	return out
}
