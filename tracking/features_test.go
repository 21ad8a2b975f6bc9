package tracking

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFindsCornersInsideROI(t *testing.T) {
	frame := checkerFrame(centeredROI.Rect(), 20, 0)
	defer frame.Close()
	gray := grayOf(frame)
	defer gray.Close()

	sel := NewSelector(DefaultFeatureParams())
	pts, err := sel.Select(gray, centeredROI)
	require.NoError(t, err)
	require.NotEmpty(t, pts)
	assert.LessOrEqual(t, len(pts), 50)

	for _, p := range pts {
		assert.True(t, centeredROI.Contains(p), "point %v outside %s", p, centeredROI)
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	frame := checkerFrame(centeredROI.Rect(), 20, 0)
	defer frame.Close()
	gray := grayOf(frame)
	defer gray.Close()

	sel := NewSelector(DefaultFeatureParams())
	first, err := sel.Select(gray, centeredROI)
	require.NoError(t, err)
	second, err := sel.Select(gray, centeredROI)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("feature sets differ (-first +second):\n%s", diff)
	}
}

func TestSelectFlatRegion(t *testing.T) {
	frame := blankFrame()
	defer frame.Close()
	gray := grayOf(frame)
	defer gray.Close()

	_, err := NewSelector(DefaultFeatureParams()).Select(gray, centeredROI)
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestSelectRegionOutsideFrame(t *testing.T) {
	frame := blankFrame()
	defer frame.Close()
	gray := grayOf(frame)
	defer gray.Close()

	_, err := NewSelector(DefaultFeatureParams()).Select(gray, ROI{Left: 700, Top: 500, Right: 800, Bottom: 600})
	assert.ErrorIs(t, err, ErrRegionInvalid)
}

func TestSelectRespectsMaxPoints(t *testing.T) {
	area := image.Rect(100, 100, 540, 400)
	frame := checkerFrame(area, 10, 0)
	defer frame.Close()
	gray := grayOf(frame)
	defer gray.Close()

	params := DefaultFeatureParams()
	params.MaxPoints = 7
	pts, err := NewSelector(params).Select(gray, ROI{Left: 100, Top: 100, Right: 540, Bottom: 400})
	require.NoError(t, err)
	assert.Len(t, pts, 7)
}
