package signal

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowFillsThenEvicts(t *testing.T) {
	w := NewWindow(3)
	_, ok := w.Last()
	assert.False(t, ok)
	assert.Empty(t, w.Samples())

	for i := int64(1); i <= 2; i++ {
		w.Push(Sample{Frame: i, Value: float64(i * 10)})
	}
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, []Sample{{Frame: 1, Value: 10}, {Frame: 2, Value: 20}}, w.Samples())

	for i := int64(3); i <= 5; i++ {
		w.Push(Sample{Frame: i, Value: float64(i * 10)})
	}
	want := []Sample{{Frame: 3, Value: 30}, {Frame: 4, Value: 40}, {Frame: 5, Value: 50}}
	if diff := cmp.Diff(want, w.Samples()); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, w.Len())

	last, ok := w.Last()
	require.True(t, ok)
	assert.Equal(t, int64(5), last.Frame)
}

func TestWindowSamplesIsACopy(t *testing.T) {
	w := NewWindow(2)
	w.Push(Sample{Frame: 1, Value: 1})
	got := w.Samples()
	got[0].Value = 99

	assert.Equal(t, 1.0, w.Samples()[0].Value)
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(0)
	assert.Equal(t, DefaultCapacity, w.Cap())

	w.Push(Sample{Frame: 1})
	w.Reset()
	assert.Equal(t, 0, w.Len())
	_, ok := w.Last()
	assert.False(t, ok)
}

func TestSmootherFirstUpdatePassesThrough(t *testing.T) {
	sm := NewDefaultSmoother()
	v, vel := sm.Update(10, 200)
	assert.Equal(t, 200.0, v)
	assert.Equal(t, 0.0, vel)
}

func TestSmootherConvergesOnConstant(t *testing.T) {
	sm := NewDefaultSmoother()
	sm.Update(0, 100)
	var v float64
	for f := int64(1); f < 50; f++ {
		v, _ = sm.Update(f, 150)
	}
	assert.InDelta(t, 150, v, 1.0)
}

func TestSmootherDampensNoise(t *testing.T) {
	sm := NewDefaultSmoother()
	sm.Update(0, 100)
	for f := int64(1); f < 30; f++ {
		sm.Update(f, 100)
	}
	v, _ := sm.Update(30, 120)
	assert.Greater(t, v, 100.0)
	assert.Less(t, v, 120.0)
}

func TestSmootherReset(t *testing.T) {
	sm := NewDefaultSmoother()
	sm.Update(0, 100)
	sm.Update(1, 110)
	sm.Reset()

	v, _ := sm.Update(2, 42)
	assert.Equal(t, 42.0, v)
}

func testSamples() []Sample {
	samples := make([]Sample, 20)
	for i := range samples {
		samples[i] = Sample{Frame: int64(i), Value: 200 + float64(i%5), Smoothed: 202}
	}
	return samples
}

func TestPlotterRender(t *testing.T) {
	pl := NewPlotter(320, 240)
	img, err := pl.Render(testSamples(), 480)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestPlotterRenderEmpty(t *testing.T) {
	pl := NewPlotter(200, 100)
	img, err := pl.Render(nil, 480)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestPlotterRenderMat(t *testing.T) {
	pl := NewPlotter(320, 240)
	mat, err := pl.RenderMat(testSamples(), 480)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 240, mat.Rows())
	assert.Equal(t, 320, mat.Cols())
	assert.Equal(t, 3, mat.Channels())
}

func TestPlotterWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlotter(160, 120).WritePNG(&buf, testSamples(), 480))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestPlotterInvalidSize(t *testing.T) {
	_, err := NewPlotter(0, 10).Render(nil, 480)
	assert.Error(t, err)
}
