package detection

import (
	"gocv.io/x/gocv"
)

// CPUProvider implements pose inference using OpenCV CPU backend
type CPUProvider struct {
	heatmapNet
}

// Initialize loads the pose network on the CPU backend
func (cp *CPUProvider) Initialize(cfg Config) error {
	return cp.load(cfg, gocv.NetBackendDefault, gocv.NetTargetCPU)
}

// Detect performs pose estimation on a BGR frame using CPU
func (cp *CPUProvider) Detect(frame gocv.Mat) ([]Keypoint, error) {
	return cp.detect(frame)
}

// Close releases resources used by the CPU provider
func (cp *CPUProvider) Close() error {
	return cp.close()
}

// GetProviderInfo returns information about the CPU provider
func (cp *CPUProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Type:         "CPU",
		Backend:      "OpenCV CPU",
		Device:       "CPU",
		EstimatedFPS: 5, // OpenPose COCO at 368x368 is heavy on CPU
	}
}
