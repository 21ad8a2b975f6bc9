package main

import (
	"fmt"
	"sync"
	"time"

	"respicam/tracking"
)

// PipelineStats tracks throughput and tracking events of the main loop
type PipelineStats struct {
	mu             sync.Mutex
	captureCount   int64
	processCount   int64
	signalCount    int64
	acquisitions   int64
	losses         int64
	lastReportTime time.Time
	lastFPSUpdate  time.Time
	fpsCount       int64
	lastFPS        float64

	// Timing measurements
	readTimeTotal    time.Duration
	processTimeTotal time.Duration
	readCount        int64
}

// StatsReport is one reporting window of PipelineStats
type StatsReport struct {
	CaptureFPS   float64
	ProcessFPS   float64
	AvgRead      time.Duration
	AvgProcess   time.Duration
	Signals      int64
	Acquisitions int64
	Losses       int64
}

func (r StatsReport) String() string {
	return fmt.Sprintf("capture %.1f fps (read %v) | process %.1f fps (%v/frame) | signals %d | acquired %d | lost %d",
		r.CaptureFPS, r.AvgRead, r.ProcessFPS, r.AvgProcess, r.Signals, r.Acquisitions, r.Losses)
}

// NewPipelineStats creates a new pipeline statistics tracker
func NewPipelineStats() *PipelineStats {
	now := time.Now()
	return &PipelineStats{
		lastReportTime: now,
		lastFPSUpdate:  now,
	}
}

// GetStats returns current statistics and resets counters
func (ps *PipelineStats) GetStats() StatsReport {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	timeWindow := now.Sub(ps.lastReportTime).Seconds()
	if timeWindow <= 0 {
		timeWindow = 1.0
	}

	report := StatsReport{
		CaptureFPS:   float64(ps.captureCount) / timeWindow,
		ProcessFPS:   float64(ps.processCount) / timeWindow,
		Signals:      ps.signalCount,
		Acquisitions: ps.acquisitions,
		Losses:       ps.losses,
	}
	if ps.readCount > 0 {
		report.AvgRead = ps.readTimeTotal / time.Duration(ps.readCount)
	}
	if ps.processCount > 0 {
		report.AvgProcess = ps.processTimeTotal / time.Duration(ps.processCount)
	}

	// Reset counters but keep timestamps
	ps.captureCount = 0
	ps.processCount = 0
	ps.signalCount = 0
	ps.acquisitions = 0
	ps.losses = 0
	ps.readTimeTotal = 0
	ps.processTimeTotal = 0
	ps.readCount = 0
	ps.lastReportTime = now

	return report
}

// UpdateCapture updates capture statistics
func (ps *PipelineStats) UpdateCapture(duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.captureCount++
	ps.readTimeTotal += duration
	ps.readCount++
}

// UpdateProcess records one ProcessFrame call and its result
func (ps *PipelineStats) UpdateProcess(duration time.Duration, before tracking.TrackingMode, res tracking.Result) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.processCount++
	ps.processTimeTotal += duration

	if res.HasSignal() {
		ps.signalCount++
	}
	if res.Outcome == tracking.OutcomeReacquiring {
		ps.losses++
	}
	if res.Mode == tracking.ModeTracking && (before == tracking.ModeUninitialized || res.Outcome == tracking.OutcomeReacquiring) {
		ps.acquisitions++
	}
}

// UpdateFPS counts a displayed frame and returns the current rate
func (ps *PipelineStats) UpdateFPS() float64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	ps.fpsCount++

	elapsed := now.Sub(ps.lastFPSUpdate)
	if elapsed >= time.Second {
		ps.lastFPS = float64(ps.fpsCount) / elapsed.Seconds()
		ps.fpsCount = 0
		ps.lastFPSUpdate = now
	}
	return ps.lastFPS
}
