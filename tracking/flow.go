package tracking

import (
	"image"

	"gocv.io/x/gocv"
)

// FlowTracker propagates points from one grayscale frame to the next.
// valid[i] reports whether next[i] is a trustworthy match for pts[i].
type FlowTracker interface {
	Track(prev, curr gocv.Mat, pts []gocv.Point2f) (next []gocv.Point2f, valid []bool)
}

// FlowParams configure pyramidal Lucas-Kanade
type FlowParams struct {
	WindowSize      int     // square search window side
	MaxLevel        int     // pyramid levels above the base image
	MaxIterations   int     // stop after this many iterations...
	Epsilon         float64 // ...or once the update is smaller than this
	MinEigThreshold float64 // reject flat neighbourhoods
}

// DefaultFlowParams returns 15x15 windows, 2 pyramid levels, 10 iterations / 0.03 eps
func DefaultFlowParams() FlowParams {
	return FlowParams{
		WindowSize:      15,
		MaxLevel:        2,
		MaxIterations:   10,
		Epsilon:         0.03,
		MinEigThreshold: 1e-4,
	}
}

// LKTracker is the sparse pyramidal Lucas-Kanade FlowTracker
type LKTracker struct {
	params FlowParams
}

// NewLKTracker creates a tracker with the given parameters
func NewLKTracker(params FlowParams) *LKTracker {
	return &LKTracker{params: params}
}

// Track never fails; points that could not be matched, or that left the
// frame, come back with valid=false.
func (t *LKTracker) Track(prev, curr gocv.Mat, pts []gocv.Point2f) ([]gocv.Point2f, []bool) {
	if len(pts) == 0 {
		return nil, nil
	}

	prevPts := pointsToMat(pts)
	defer prevPts.Close()
	nextPts := gocv.NewMat()
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	errMat := gocv.NewMat()
	defer errMat.Close()

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, t.params.MaxIterations, t.params.Epsilon)
	gocv.CalcOpticalFlowPyrLKWithParams(prev, curr, prevPts, nextPts, &status, &errMat,
		image.Pt(t.params.WindowSize, t.params.WindowSize), t.params.MaxLevel, criteria, 0, t.params.MinEigThreshold)

	next := make([]gocv.Point2f, len(pts))
	valid := make([]bool, len(pts))
	if status.Rows() < len(pts) || nextPts.Rows() < len(pts) {
		return next, valid
	}

	for i := range pts {
		next[i] = pointAt(nextPts, i)
		valid[i] = validPoint(status.GetUCharAt(i, 0), next[i], curr.Cols(), curr.Rows())
	}
	return next, valid
}

// validPoint accepts a tracked point when LK found it (status 1) and it is
// still inside the image
func validPoint(status uint8, p gocv.Point2f, width, height int) bool {
	inside := p.X >= 0 && p.Y >= 0 && p.X < float32(width) && p.Y < float32(height)
	return status == 1 && inside
}

// pointsToMat packs points into an Nx2 CV32F Mat
func pointsToMat(pts []gocv.Point2f) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV32F)
	for i, p := range pts {
		m.SetFloatAt(i, 0, p.X)
		m.SetFloatAt(i, 1, p.Y)
	}
	return m
}

// pointAt reads row i of an Nx2 CV32F or Nx1 CV32FC2 point Mat
func pointAt(m gocv.Mat, i int) gocv.Point2f {
	if m.Channels() == 2 {
		v := m.GetVecfAt(i, 0)
		return gocv.Point2f{X: v[0], Y: v[1]}
	}
	return gocv.Point2f{X: m.GetFloatAt(i, 0), Y: m.GetFloatAt(i, 1)}
}
