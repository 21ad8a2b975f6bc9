package detection

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestWorkerConnRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	conn := &workerConn{w: &buf, r: &buf}

	req := poseRequest{Seq: 7, Width: 2, Height: 1, Format: "SRGB", Image: []byte{1, 2, 3, 4, 5, 6}}
	require.NoError(t, conn.send(req))

	var got poseRequest
	require.NoError(t, conn.receive(&got))
	assert.Equal(t, req, got)
}

func TestWorkerConnRejectsOversizedMessage(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0xff})
	conn := &workerConn{r: buf}

	var resp poseResponse
	err := conn.receive(&resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestWorkerConnTruncatedStream(t *testing.T) {
	conn := &workerConn{r: bytes.NewReader([]byte{0, 0})}

	var resp poseResponse
	assert.ErrorIs(t, conn.receive(&resp), io.ErrUnexpectedEOF)
}

// fakeWorker answers requests on the far side of a pair of pipes
func fakeWorker(t *testing.T, reply func(req poseRequest) poseResponse) *WorkerProvider {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	go func() {
		worker := &workerConn{w: respW, r: reqR}
		for {
			var req poseRequest
			if err := worker.receive(&req); err != nil {
				respW.Close()
				return
			}
			if err := worker.send(reply(req)); err != nil {
				return
			}
		}
	}()

	wp := &WorkerProvider{
		cfg:     Config{WorkerTimeout: time.Second},
		stdin:   reqW,
		conn:    &workerConn{w: reqW, r: respR},
		running: true,
	}
	t.Cleanup(func() {
		wp.Close()
		respR.Close()
	})
	return wp
}

func TestWorkerProviderDetect(t *testing.T) {
	var seen poseRequest
	wp := fakeWorker(t, func(req poseRequest) poseResponse {
		seen = req
		rows := make([][]float64, NumLandmarks)
		for i := range rows {
			rows[i] = []float64{0.5, 0.5, 0, 0.9}
		}
		rows[LeftShoulder] = []float64{0.4, 0.6, 0.1, 0.8}
		return poseResponse{Seq: req.Seq, Landmarks: rows}
	})

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 4, 6, gocv.MatTypeCV8UC3)
	defer frame.Close()

	kps, err := wp.Detect(frame)
	require.NoError(t, err)
	require.Len(t, kps, NumLandmarks)

	left, _, ok := Shoulders(kps)
	require.True(t, ok)
	assert.Equal(t, Keypoint{Index: LeftShoulder, X: 0.4, Y: 0.6, Z: 0.1, Visibility: 0.8}, left)

	assert.Equal(t, uint64(1), seen.Seq)
	assert.Equal(t, 6, seen.Width)
	assert.Equal(t, 4, seen.Height)
	assert.Equal(t, "SRGB", seen.Format)
	require.Len(t, seen.Image, 6*4*3)
	// blue BGR pixel arrives as RGB
	assert.Equal(t, []byte{0, 0, 255}, seen.Image[:3])
}

func TestWorkerProviderNoPerson(t *testing.T) {
	wp := fakeWorker(t, func(req poseRequest) poseResponse {
		return poseResponse{Seq: req.Seq}
	})

	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	kps, err := wp.Detect(frame)
	require.NoError(t, err)
	assert.Empty(t, kps)
}

func TestWorkerProviderReportsWorkerError(t *testing.T) {
	wp := fakeWorker(t, func(req poseRequest) poseResponse {
		return poseResponse{Seq: req.Seq, Error: "model not loaded"}
	})

	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	_, err := wp.Detect(frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
	assert.True(t, wp.running, "a reported error keeps the worker alive")
}

func TestWorkerProviderSequenceMismatch(t *testing.T) {
	wp := fakeWorker(t, func(req poseRequest) poseResponse {
		return poseResponse{Seq: req.Seq + 10}
	})

	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	_, err := wp.Detect(frame)
	require.Error(t, err)
	assert.False(t, wp.running)
}

func TestWorkerProviderEmptyFrame(t *testing.T) {
	wp := &WorkerProvider{running: true}
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := wp.Detect(empty)
	assert.Error(t, err)
}

func TestWorkerProviderRequiresCommand(t *testing.T) {
	wp := &WorkerProvider{}
	assert.Error(t, wp.Initialize(Config{}))
}

func TestLandmarksToKeypoints(t *testing.T) {
	kps := landmarksToKeypoints([][]float64{
		{0.1, 0.2},
		{0.3},
		{0.5, 0.6, 0.7, 0.2},
	})
	require.Len(t, kps, 2)
	assert.Equal(t, Keypoint{Index: 0, X: 0.1, Y: 0.2, Visibility: 1}, kps[0])
	assert.Equal(t, Keypoint{Index: 2, X: 0.5, Y: 0.6, Z: 0.7, Visibility: 0.2}, kps[1])

	_, err := landmarkRow(0, nil)
	assert.ErrorIs(t, err, errShortLandmark)
}

func TestProviderManagerWithoutProvider(t *testing.T) {
	pm := NewProviderManager()
	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	_, err := pm.Detect(frame)
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.NoError(t, pm.Close())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, BackendAuto, cfg.Backend)
	assert.Equal(t, 368, cfg.InputSize)
	assert.Equal(t, 2*time.Second, cfg.WorkerTimeout)
}

func TestStderrTail(t *testing.T) {
	tail := newStderrTail(3)
	assert.Empty(t, tail.recent())

	tail.add("a")
	tail.add("b")
	assert.Equal(t, []string{"a", "b"}, tail.recent())

	tail.add("c")
	tail.add("d")
	assert.Equal(t, []string{"b", "c", "d"}, tail.recent())
	assert.Equal(t, "b | c | d", tail.String())
}

func TestWorkerProviderErrorIncludesStderr(t *testing.T) {
	wp := fakeWorker(t, func(req poseRequest) poseResponse {
		return poseResponse{Seq: req.Seq + 1}
	})
	wp.tail = newStderrTail(stderrTailLines)
	wp.tail.add("Traceback (most recent call last):")
	wp.tail.add("RuntimeError: model file missing")

	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	_, err := wp.Detect(frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RuntimeError: model file missing")
}

func TestWorkerProviderInfoDuringDetect(t *testing.T) {
	wp := fakeWorker(t, func(req poseRequest) poseResponse {
		return poseResponse{Seq: req.Seq}
	})
	wp.cfg.WorkerCommand = []string{"python3", "pose_worker.py"}

	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := wp.Detect(frame)
			assert.NoError(t, err)
		}
	}()
	for i := 0; i < 20; i++ {
		info := wp.GetProviderInfo()
		assert.Equal(t, "WORKER", info.Type)
		assert.Equal(t, "python3 pose_worker.py", info.Backend)
	}
	wg.Wait()
}
