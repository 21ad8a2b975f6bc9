package detection

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gocv.io/x/gocv"
)

const (
	// maxMessageSize bounds a single worker reply
	maxMessageSize = 16 << 20
	// stderrTailLines is how much worker stderr is kept for error reports
	stderrTailLines = 10
)

// poseRequest is one frame sent to the landmarker process
type poseRequest struct {
	Seq    uint64 `msgpack:"seq"`
	Width  int    `msgpack:"width"`
	Height int    `msgpack:"height"`
	Format string `msgpack:"format"`
	Image  []byte `msgpack:"image"`
}

// poseResponse carries the landmarks of the first detected pose as
// [x, y, z, visibility] rows. No landmarks means nobody was found.
type poseResponse struct {
	Seq       uint64      `msgpack:"seq"`
	Landmarks [][]float64 `msgpack:"landmarks"`
	Error     string      `msgpack:"error,omitempty"`
}

// workerConn frames msgpack messages with a 4 byte big-endian length prefix
type workerConn struct {
	w io.Writer
	r io.Reader
}

func (c *workerConn) send(v interface{}) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal msgpack request: %w", err)
	}

	lengthPrefix := make([]byte, 4)
	binary.BigEndian.PutUint32(lengthPrefix, uint32(len(payload)))
	if _, err := c.w.Write(lengthPrefix); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if _, err := c.w.Write(payload); err != nil {
		return fmt.Errorf("failed to write msgpack data: %w", err)
	}
	return nil
}

func (c *workerConn) receive(v interface{}) error {
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(c.r, lengthBuf); err != nil {
		return fmt.Errorf("failed to read length prefix: %w", err)
	}

	msgLength := binary.BigEndian.Uint32(lengthBuf)
	if msgLength > maxMessageSize {
		return fmt.Errorf("worker message too large: %d bytes", msgLength)
	}

	payload := make([]byte, msgLength)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return fmt.Errorf("failed to read msgpack data: %w", err)
	}
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal msgpack reply: %w", err)
	}
	return nil
}

// WorkerProvider runs pose estimation in an external landmarker process
// (for example a MediaPipe wrapper script) and talks to it over
// stdin/stdout. A hung or crashed worker is killed and restarted on the
// next Detect call.
type WorkerProvider struct {
	cfg Config

	cmd   *exec.Cmd
	stdin io.WriteCloser
	conn  *workerConn
	done  chan struct{}
	tail  *stderrTail

	seq     uint64
	running bool
	mu      sync.Mutex
}

// Initialize starts the worker process
func (wp *WorkerProvider) Initialize(cfg Config) error {
	if len(cfg.WorkerCommand) == 0 || cfg.WorkerCommand[0] == "" {
		return fmt.Errorf("worker command is required")
	}
	if cfg.WorkerTimeout <= 0 {
		cfg.WorkerTimeout = DefaultConfig().WorkerTimeout
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.cfg = cfg
	return wp.startLocked()
}

func (wp *WorkerProvider) startLocked() error {
	if len(wp.cfg.WorkerCommand) == 0 {
		return fmt.Errorf("worker command is not configured")
	}

	cmd := exec.Command(wp.cfg.WorkerCommand[0], wp.cfg.WorkerCommand[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start pose worker: %w", err)
	}

	wp.cmd = cmd
	wp.stdin = stdin
	wp.conn = &workerConn{w: stdin, r: bufio.NewReader(stdout)}
	wp.done = make(chan struct{})
	wp.tail = newStderrTail(stderrTailLines)
	wp.running = true

	go wp.logStderr(stderr, wp.tail)
	go wp.waitProcess(cmd, wp.done)

	debugMsg("WORKER", fmt.Sprintf("Pose worker started (pid %d): %s",
		cmd.Process.Pid, strings.Join(wp.cfg.WorkerCommand, " ")))
	return nil
}

// logStderr forwards worker stderr lines to the debug log
func (wp *WorkerProvider) logStderr(stderr io.Reader, tail *stderrTail) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		tail.add(scanner.Text())
		debugMsg("WORKER_STDERR", scanner.Text())
	}
}

// waitProcess reaps the worker so it never lingers as a zombie
func (wp *WorkerProvider) waitProcess(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()
	close(done)
	if err != nil {
		debugMsg("WORKER", fmt.Sprintf("Pose worker exited: %v", err))
	}
}

// Detect sends one frame to the worker and waits for its landmarks
func (wp *WorkerProvider) Detect(frame gocv.Mat) ([]Keypoint, error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	if !wp.running {
		debugMsg("WORKER", "Pose worker not running, restarting")
		if err := wp.startLocked(); err != nil {
			return nil, err
		}
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(frame, &rgb, gocv.ColorBGRToRGB)

	wp.seq++
	req := poseRequest{
		Seq:    wp.seq,
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Format: "SRGB",
		Image:  rgb.ToBytes(),
	}

	resp, err := wp.roundTrip(req)
	if err != nil {
		if wp.tail != nil {
			if lines := wp.tail.String(); lines != "" {
				err = fmt.Errorf("%w (worker stderr: %s)", err, lines)
			}
		}
		wp.stopLocked()
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose worker: %s", resp.Error)
	}
	return landmarksToKeypoints(resp.Landmarks), nil
}

type roundTripResult struct {
	resp poseResponse
	err  error
}

func (wp *WorkerProvider) roundTrip(req poseRequest) (poseResponse, error) {
	timeout := wp.cfg.WorkerTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().WorkerTimeout
	}

	conn := wp.conn
	result := make(chan roundTripResult, 1)
	go func() {
		var resp poseResponse
		err := conn.send(req)
		if err == nil {
			err = conn.receive(&resp)
		}
		result <- roundTripResult{resp: resp, err: err}
	}()

	select {
	case r := <-result:
		if r.err != nil {
			return poseResponse{}, r.err
		}
		if r.resp.Seq != req.Seq {
			return poseResponse{}, fmt.Errorf("pose worker replied to frame %d, expected %d", r.resp.Seq, req.Seq)
		}
		return r.resp, nil
	case <-time.After(timeout):
		return poseResponse{}, fmt.Errorf("pose worker did not answer within %v", timeout)
	}
}

// stopLocked closes stdin and kills the worker if it does not exit on its own
func (wp *WorkerProvider) stopLocked() {
	if !wp.running {
		return
	}
	wp.running = false

	if wp.stdin != nil {
		wp.stdin.Close()
	}
	if wp.cmd == nil || wp.cmd.Process == nil {
		return
	}

	select {
	case <-wp.done:
	case <-time.After(2 * time.Second):
		debugMsg("WORKER", "Pose worker did not exit, killing it")
		wp.cmd.Process.Kill()
		<-wp.done
	}
}

// Close stops the worker process
func (wp *WorkerProvider) Close() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.stopLocked()
	return nil
}

// GetProviderInfo returns information about the worker provider
func (wp *WorkerProvider) GetProviderInfo() ProviderInfo {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return ProviderInfo{
		Type:         "WORKER",
		Backend:      strings.Join(wp.cfg.WorkerCommand, " "),
		Device:       "subprocess",
		EstimatedFPS: 15,
	}
}

var errShortLandmark = errors.New("landmark row needs at least x and y")

// landmarksToKeypoints converts worker rows into keypoints indexed by row
// position. Malformed rows are skipped.
func landmarksToKeypoints(rows [][]float64) []Keypoint {
	keypoints := make([]Keypoint, 0, len(rows))
	for i, row := range rows {
		kp, err := landmarkRow(i, row)
		if err != nil {
			debugMsg("WORKER", fmt.Sprintf("Skipping landmark %d: %v", i, err))
			continue
		}
		keypoints = append(keypoints, kp)
	}
	return keypoints
}

func landmarkRow(index int, row []float64) (Keypoint, error) {
	if len(row) < 2 {
		return Keypoint{}, errShortLandmark
	}
	kp := Keypoint{Index: index, X: row[0], Y: row[1], Visibility: 1}
	if len(row) > 2 {
		kp.Z = row[2]
	}
	if len(row) > 3 {
		kp.Visibility = row[3]
	}
	return kp, nil
}
