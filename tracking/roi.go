package tracking

import (
	"fmt"

	"respicam/detection"

	"gocv.io/x/gocv"
)

// ROIParams sizes and biases the torso rectangle around the shoulder midpoint
type ROIParams struct {
	SizeX  int // half width in pixels
	SizeY  int // height in pixels, measured upward from the shoulder line
	ShiftX int // horizontal bias applied to the midpoint
	ShiftY int // vertical bias applied to the midpoint
}

// DefaultROIParams returns a 200x100 region directly above the shoulder line
func DefaultROIParams() ROIParams {
	return ROIParams{SizeX: 100, SizeY: 100}
}

// Locator derives the tracking region from a one-shot pose estimate
type Locator struct {
	detector detection.KeypointDetector
}

// NewLocator creates a locator backed by the given keypoint detector
func NewLocator(detector detection.KeypointDetector) *Locator {
	return &Locator{detector: detector}
}

// Locate runs the detector on a BGR image and returns a rectangle of
// width 2*sizeX and height sizeY whose bottom edge sits on the (shifted)
// shoulder midpoint, clipped to the image. It fails with
// ErrDetectionFailed when no shoulders are found and ErrRegionInvalid
// when clipping leaves no area.
func (l *Locator) Locate(img gocv.Mat, sizeX, sizeY, shiftX, shiftY int) (ROI, error) {
	keypoints, err := l.detector.Detect(img)
	if err != nil {
		return ROI{}, fmt.Errorf("%w: %v", ErrDetectionFailed, err)
	}
	if len(keypoints) == 0 {
		return ROI{}, ErrDetectionFailed
	}

	left, right, ok := detection.Shoulders(keypoints)
	if !ok {
		return ROI{}, fmt.Errorf("%w: shoulders not visible", ErrDetectionFailed)
	}

	return regionAroundShoulders(left, right, img.Cols(), img.Rows(), sizeX, sizeY, shiftX, shiftY)
}

// regionAroundShoulders builds the clipped rectangle. The vertical span
// covers only [centerY-sizeY, centerY], the chest area above the shoulders line
// in image coordinates.
func regionAroundShoulders(left, right detection.Keypoint, width, height, sizeX, sizeY, shiftX, shiftY int) (ROI, error) {
	centerX := int((left.X+right.X)*float64(width)/2) + shiftX
	centerY := int((left.Y+right.Y)*float64(height)/2) + shiftY

	roi := ROI{
		Left:   max(0, centerX-sizeX),
		Top:    max(0, centerY-sizeY),
		Right:  min(width, centerX+sizeX),
		Bottom: min(height, centerY),
	}
	if !roi.Valid() {
		return ROI{}, fmt.Errorf("%w: %s from shoulder midpoint (%d,%d)", ErrRegionInvalid, roi, centerX, centerY)
	}
	return roi, nil
}
