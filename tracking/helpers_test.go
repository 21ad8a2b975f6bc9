package tracking

import (
	"image"
	"image/color"

	"respicam/detection"

	"gocv.io/x/gocv"
)

const (
	testWidth  = 640
	testHeight = 480
)

// stubDetector replays scripted detections; the last entry repeats forever
type stubDetector struct {
	script [][]detection.Keypoint
	err    error
	calls  int
}

func (d *stubDetector) Detect(frame gocv.Mat) ([]detection.Keypoint, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if len(d.script) == 0 {
		return nil, nil
	}
	i := d.calls - 1
	if i >= len(d.script) {
		i = len(d.script) - 1
	}
	return d.script[i], nil
}

func (d *stubDetector) Close() error { return nil }

func shoulders(lx, ly, rx, ry float64) []detection.Keypoint {
	return []detection.Keypoint{
		{Index: detection.Nose, X: (lx + rx) / 2, Y: ly - 0.2, Visibility: 1},
		{Index: detection.LeftShoulder, X: lx, Y: ly, Visibility: 1},
		{Index: detection.RightShoulder, X: rx, Y: ry, Visibility: 1},
	}
}

// centeredShoulders puts the shoulder midpoint at (320, 240) in a 640x480 frame,
// giving the default ROI (220,140)-(420,240)
func centeredShoulders() []detection.Keypoint {
	return shoulders(0.4, 0.5, 0.6, 0.5)
}

var centeredROI = ROI{Left: 220, Top: 140, Right: 420, Bottom: 240}

// blankFrame returns a black BGR frame
func blankFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), testHeight, testWidth, gocv.MatTypeCV8UC3)
}

// checkerFrame returns a black BGR frame with a checkerboard of the given
// cell size painted inside area, shifted down by dy pixels
func checkerFrame(area image.Rectangle, cell, dy int) gocv.Mat {
	frame := blankFrame()
	white := color.RGBA{255, 255, 255, 255}
	for y := area.Min.Y; y < area.Max.Y; y += cell {
		for x := area.Min.X; x < area.Max.X; x += cell {
			if ((x-area.Min.X)/cell+(y-area.Min.Y)/cell)%2 == 0 {
				continue
			}
			sq := image.Rect(x, y+dy, min(x+cell, area.Max.X), min(y+cell, area.Max.Y)+dy)
			gocv.Rectangle(&frame, sq, white, -1)
		}
	}
	return frame
}

// occludedFrame is a checker frame whose region (plus a margin wider than
// the flow window) is painted over with the background
func occludedFrame(roi ROI) gocv.Mat {
	frame := checkerFrame(roi.Rect(), 20, 0)
	gocv.Rectangle(&frame, roi.Rect().Inset(-20), color.RGBA{0, 0, 0, 255}, -1)
	return frame
}

// grayOf converts a BGR test frame
func grayOf(frame gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	return gray
}

// nonZeroPixels counts lit pixels of a BGR frame
func nonZeroPixels(frame gocv.Mat) int {
	gray := grayOf(frame)
	defer gray.Close()
	return gocv.CountNonZero(gray)
}

// scriptedFlow keeps points in place and applies a validity rule
type scriptedFlow struct {
	keep  func(call, i int) bool
	calls int
}

func (f *scriptedFlow) Track(prev, curr gocv.Mat, pts []gocv.Point2f) ([]gocv.Point2f, []bool) {
	f.calls++
	next := make([]gocv.Point2f, len(pts))
	valid := make([]bool, len(pts))
	copy(next, pts)
	for i := range pts {
		valid[i] = f.keep(f.calls, i)
	}
	return next, valid
}

func allLost(call, i int) bool { return false }

// shortFlow marks every point valid but returns no positions
type shortFlow struct{}

func (shortFlow) Track(prev, curr gocv.Mat, pts []gocv.Point2f) ([]gocv.Point2f, []bool) {
	valid := make([]bool, len(pts))
	for i := range valid {
		valid[i] = true
	}
	return nil, valid
}

func meanYOf(pts []gocv.Point2f) float64 {
	sum := 0.0
	for _, p := range pts {
		sum += float64(p.Y)
	}
	return sum / float64(len(pts))
}
