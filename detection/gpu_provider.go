package detection

import (
	"gocv.io/x/gocv"
)

// GPUProvider implements pose inference using OpenCV CUDA backend
type GPUProvider struct {
	heatmapNet
}

// Initialize loads the pose network on the CUDA backend
func (gp *GPUProvider) Initialize(cfg Config) error {
	return gp.load(cfg, gocv.NetBackendCUDA, gocv.NetTargetCUDA)
}

// Detect performs pose estimation on a BGR frame using GPU
func (gp *GPUProvider) Detect(frame gocv.Mat) ([]Keypoint, error) {
	return gp.detect(frame)
}

// Close releases resources used by the GPU provider
func (gp *GPUProvider) Close() error {
	return gp.close()
}

// GetProviderInfo returns information about the GPU provider
func (gp *GPUProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Type:         "GPU",
		Backend:      "CUDA",
		Device:       "GPU:0",
		EstimatedFPS: 30,
	}
}
