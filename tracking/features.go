package tracking

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FeatureParams are the Shi-Tomasi corner detector settings
type FeatureParams struct {
	MaxPoints    int
	QualityLevel float64
	MinDistance  float64
	// BlockSize is the corner covariance window. The gocv binding always
	// uses OpenCV's default of 3, so only 3 is accepted by config validation.
	BlockSize int
}

// DefaultFeatureParams returns the settings that reproduce the published
// signal: 50 points, quality 0.2, 5 px separation, 3x3 blocks.
func DefaultFeatureParams() FeatureParams {
	return FeatureParams{
		MaxPoints:    50,
		QualityLevel: 0.2,
		MinDistance:  5,
		BlockSize:    3,
	}
}

// Selector picks trackable corner points inside a region
type Selector struct {
	params FeatureParams
}

// NewSelector creates a selector with the given parameters
func NewSelector(params FeatureParams) *Selector {
	return &Selector{params: params}
}

// Select runs corner detection on the roi sub-image of a grayscale frame
// and returns the corners in full-image coordinates. It returns
// ErrNoFeatures when nothing clears the quality threshold.
func (s *Selector) Select(gray gocv.Mat, roi ROI) ([]gocv.Point2f, error) {
	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())
	rect := roi.Rect().Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %s outside %dx%d frame", ErrRegionInvalid, roi, gray.Cols(), gray.Rows())
	}

	region := gray.Region(rect)
	defer region.Close()

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(region, &corners, s.params.MaxPoints, s.params.QualityLevel, s.params.MinDistance)

	if corners.Empty() || corners.Rows() == 0 {
		return nil, ErrNoFeatures
	}

	points := make([]gocv.Point2f, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)
		points = append(points, gocv.Point2f{
			X: v[0] + float32(rect.Min.X),
			Y: v[1] + float32(rect.Min.Y),
		})
	}
	return points, nil
}
