package detection

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// KeypointDetector turns a single BGR image into body keypoints.
// An empty slice with a nil error means no person was found.
type KeypointDetector interface {
	Detect(frame gocv.Mat) ([]Keypoint, error)
	Close() error
}

// PoseProvider defines the interface for pose inference backends
type PoseProvider interface {
	KeypointDetector
	Initialize(cfg Config) error
	GetProviderInfo() ProviderInfo
}

// ProviderInfo contains information about the inference provider
type ProviderInfo struct {
	Type         string        // "GPU", "CPU" or "WORKER"
	Backend      string        // "CUDA", "OpenCV CPU", worker command
	Device       string        // Device identifier
	EstimatedFPS int           // Estimated inference FPS
	InitTime     time.Duration // Time taken to initialize
}

// Backend selects which provider the manager may use
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendCPU    Backend = "cpu"
	BackendGPU    Backend = "gpu"
	BackendWorker Backend = "worker"
)

// Config configures pose providers
type Config struct {
	Backend Backend

	// DNN providers
	ModelPath     string  // network weights (e.g. pose_iter_440000.caffemodel)
	ConfigPath    string  // network description (e.g. pose_deploy_linevec.prototxt)
	InputSize     int     // square blob size, 368 for OpenPose COCO
	SwapRB        bool    // model expects RGB input
	MinConfidence float64 // heatmap peak threshold

	// Worker provider
	WorkerCommand []string      // argv of the landmarker process
	WorkerTimeout time.Duration // per-frame round trip limit
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		InputSize:     368,
		SwapRB:        false,
		MinConfidence: 0.1,
		WorkerTimeout: 2 * time.Second,
	}
}

// ErrNoProvider is returned by Detect before Initialize succeeded
var ErrNoProvider = errors.New("no pose provider initialized")

// ProviderManager handles automatic provider selection and fallback
type ProviderManager struct {
	currentProvider PoseProvider
	providerInfo    ProviderInfo
}

// NewProviderManager creates a new provider manager with auto-detection
func NewProviderManager() *ProviderManager {
	return &ProviderManager{}
}

// Initialize picks the pose provider. A configured worker command always
// wins; otherwise GPU is tried when allowed and present, then CPU.
func (pm *ProviderManager) Initialize(cfg Config) error {
	if cfg.Backend == "" {
		cfg.Backend = BackendAuto
	}

	if cfg.Backend == BackendWorker || (cfg.Backend == BackendAuto && len(cfg.WorkerCommand) > 0) {
		return pm.use(&WorkerProvider{}, cfg)
	}

	if cfg.Backend == BackendGPU || cfg.Backend == BackendAuto {
		if hasGPUCapability() {
			debugMsg("PROVIDER", "GPU capability detected, attempting GPU initialization")
			gpuProvider := &GPUProvider{}
			if err := pm.use(gpuProvider, cfg); err == nil {
				if testProvider(gpuProvider, cfg.InputSize) {
					return nil
				}
				debugMsg("PROVIDER", "GPU test inference failed, falling back to CPU")
				gpuProvider.Close()
			} else {
				debugMsg("PROVIDER", fmt.Sprintf("GPU initialization failed: %v, falling back to CPU", err))
			}
		} else if cfg.Backend == BackendGPU {
			debugMsg("PROVIDER", "GPU backend requested but no GPU detected, falling back to CPU")
		}
	}

	if err := pm.use(&CPUProvider{}, cfg); err != nil {
		return fmt.Errorf("no pose provider could be initialized: %w", err)
	}
	return nil
}

func (pm *ProviderManager) use(p PoseProvider, cfg Config) error {
	startTime := time.Now()
	if err := p.Initialize(cfg); err != nil {
		return err
	}
	pm.currentProvider = p
	pm.providerInfo = p.GetProviderInfo()
	pm.providerInfo.InitTime = time.Since(startTime)
	debugMsg("PROVIDER", fmt.Sprintf("%s provider initialized (%s, %v)",
		pm.providerInfo.Type, pm.providerInfo.Backend, pm.providerInfo.InitTime))
	return nil
}

// Detect runs the active provider
func (pm *ProviderManager) Detect(frame gocv.Mat) ([]Keypoint, error) {
	if pm.currentProvider == nil {
		return nil, ErrNoProvider
	}
	return pm.currentProvider.Detect(frame)
}

// GetProvider returns the current active provider
func (pm *ProviderManager) GetProvider() PoseProvider {
	return pm.currentProvider
}

// GetProviderInfo returns information about the current provider
func (pm *ProviderManager) GetProviderInfo() ProviderInfo {
	return pm.providerInfo
}

// Close closes the current provider
func (pm *ProviderManager) Close() error {
	if pm.currentProvider != nil {
		return pm.currentProvider.Close()
	}
	return nil
}

// hasGPUCapability checks if GPU inference is possible
func hasGPUCapability() bool {
	if !hasNVIDIAGPU() {
		debugMsg("GPU_DETECT", "No NVIDIA GPU detected")
		return false
	}
	if !hasNVIDIADriver() {
		debugMsg("GPU_DETECT", "NVIDIA drivers not loaded")
		return false
	}
	// CUDA support in OpenCV itself is verified by the test inference
	return true
}

// hasNVIDIAGPU checks if NVIDIA GPU is present
func hasNVIDIAGPU() bool {
	output, err := exec.Command("lspci").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(output)), "nvidia")
}

// hasNVIDIADriver checks if NVIDIA drivers are loaded
func hasNVIDIADriver() bool {
	if err := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Run(); err != nil {
		return false
	}
	matches, _ := filepath.Glob("/dev/nvidia*")
	return len(matches) > 0
}

// testProvider performs a quick test inference to verify the provider works
func testProvider(provider PoseProvider, size int) bool {
	if size <= 0 {
		size = 368
	}
	testFrame := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer testFrame.Close()

	_, err := provider.Detect(testFrame)
	return err == nil
}
