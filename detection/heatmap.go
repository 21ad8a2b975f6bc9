package detection

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// heatmapNet runs an OpenPose style network whose output holds one
// confidence map per body part. CPU and GPU providers differ only in the
// backend the net is bound to.
type heatmapNet struct {
	net   gocv.Net
	cfg   Config
	mu    sync.Mutex
	ready bool
}

func (h *heatmapNet) load(cfg Config, backend gocv.NetBackendType, target gocv.NetTargetType) error {
	if cfg.ModelPath == "" {
		return fmt.Errorf("pose model path is required")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultConfig().InputSize
	}

	h.net = gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if h.net.Empty() {
		return fmt.Errorf("failed to load pose network from %s and %s", cfg.ModelPath, cfg.ConfigPath)
	}
	h.net.SetPreferableBackend(backend)
	h.net.SetPreferableTarget(target)

	h.cfg = cfg
	h.ready = true
	return nil
}

func (h *heatmapNet) detect(frame gocv.Mat) ([]Keypoint, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready {
		return nil, ErrNoProvider
	}
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	// The blob is a plain resize of the whole frame, so normalized heatmap
	// coordinates are normalized frame coordinates as well.
	size := h.cfg.InputSize
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), h.cfg.SwapRB, false)
	defer blob.Close()

	h.net.SetInput(blob, "")
	output := h.net.Forward("")
	defer output.Close()

	return decodeHeatmaps(output, h.cfg.MinConfidence), nil
}

func (h *heatmapNet) close() error {
	if h.ready {
		h.ready = false
		return h.net.Close()
	}
	return nil
}

// decodeHeatmaps takes the peak of every COCO part map in a [1, C, H, W]
// network output and keeps those above minConfidence.
func decodeHeatmaps(output gocv.Mat, minConfidence float64) []Keypoint {
	dims := output.Size()
	if len(dims) != 4 {
		return nil
	}
	channels := dims[1]
	if channels > len(cocoToPose) {
		channels = len(cocoToPose)
	}

	var keypoints []Keypoint
	for part := 0; part < channels; part++ {
		index := cocoToPose[part]
		if index < 0 {
			continue
		}

		heatmap := gocv.GetBlobChannel(output, 0, part)
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(heatmap)
		cols, rows := heatmap.Cols(), heatmap.Rows()
		heatmap.Close()

		if float64(maxVal) < minConfidence || cols == 0 || rows == 0 {
			continue
		}
		keypoints = append(keypoints, Keypoint{
			Index:      index,
			X:          (float64(maxLoc.X) + 0.5) / float64(cols),
			Y:          (float64(maxLoc.Y) + 0.5) / float64(rows),
			Visibility: float64(maxVal),
		})
	}
	return keypoints
}
