// Package overlay draws status information on top of the video frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"respicam/signal"
	"respicam/tracking"

	"gocv.io/x/gocv"
)

// Status is the per-frame information shown in the status box
type Status struct {
	Frame    int64
	FPS      float64
	Result   tracking.Result
	Episodes int
	Provider string
}

// EventEntry is a tracking transition shown in the event panel
type EventEntry struct {
	Time    time.Time
	Frame   int64
	Message string
}

// Renderer draws the status box, the event panel with the signal trace,
// and the debug terminal
type Renderer struct {
	textColor   color.RGBA
	signalColor color.RGBA
	meanColor   color.RGBA
	lostColor   color.RGBA
	panelColor  color.RGBA

	// Event history for the right-side panel
	eventHistory    []EventEntry
	maxEventHistory int
	lastMode        tracking.TrackingMode

	// Terminal fade state
	lastTrackingTime time.Time
	fadeStart        time.Time
	lingerDuration   time.Duration
	fadeDuration     time.Duration
}

// NewRenderer creates a new overlay renderer
func NewRenderer() *Renderer {
	return &Renderer{
		textColor:        color.RGBA{255, 255, 255, 255},
		signalColor:      color.RGBA{0, 255, 0, 255},
		meanColor:        color.RGBA{255, 255, 0, 255},
		lostColor:        color.RGBA{255, 0, 0, 255},
		panelColor:       color.RGBA{0, 150, 255, 255},
		eventHistory:     make([]EventEntry, 0),
		maxEventHistory:  8,
		lastMode:         tracking.ModeUninitialized,
		lastTrackingTime: time.Now(),
		lingerDuration:   10 * time.Second,
		fadeDuration:     3 * time.Second,
	}
}

// StatusLines formats the status box contents
func StatusLines(st Status) []string {
	res := st.Result
	signalText := "--"
	if res.HasSignal() {
		signalText = fmt.Sprintf("%.2f px", res.Signal)
	}

	lines := []string{
		fmt.Sprintf("Time: %s", time.Now().Format("15:04:05")),
		fmt.Sprintf("Frame: %d", st.Frame),
		fmt.Sprintf("FPS: %.1f", st.FPS),
		fmt.Sprintf("Mode: %s (%s)", res.Mode, res.Outcome),
		fmt.Sprintf("Signal: %s", signalText),
		fmt.Sprintf("Points: %d", len(res.Points)),
		fmt.Sprintf("Episodes: %d", st.Episodes),
	}
	if st.Provider != "" {
		lines = append(lines, fmt.Sprintf("Pose: %s", st.Provider))
	}
	if res.Reason != nil && !res.HasSignal() {
		lines = append(lines, fmt.Sprintf("Reason: %v", res.Reason))
	}
	return lines
}

// DrawStatus draws the status box in the lower-left corner
func (r *Renderer) DrawStatus(img *gocv.Mat, st Status) {
	lines := StatusLines(st)
	lineHeight := 18
	boxHeight := len(lines)*lineHeight + 12
	boxWidth := 320
	if img.Cols() < boxWidth+20 {
		boxWidth = img.Cols() - 20
	}
	top := img.Rows() - boxHeight - 10
	if top < 0 {
		top = 0
	}

	box := image.Rect(10, top, 10+boxWidth, top+boxHeight)
	gocv.Rectangle(img, box, color.RGBA{0, 0, 0, 200}, -1)

	for i, line := range lines {
		c := r.textColor
		if i == 3 && st.Result.Mode == tracking.ModeUninitialized {
			c = r.lostColor
		}
		gocv.PutText(img, line, image.Pt(20, top+20+i*lineHeight), gocv.FontHersheySimplex, 0.5, c, 1)
	}
}

// LogEvent records mode transitions and losses for the event panel
func (r *Renderer) LogEvent(res tracking.Result, frame int64) {
	var message string
	switch {
	case res.Outcome == tracking.OutcomeReacquiring && res.Mode == tracking.ModeTracking:
		message = fmt.Sprintf("lost %d pts, re-acquired %d", res.Lost, len(res.Points))
	case res.Outcome == tracking.OutcomeReacquiring:
		message = fmt.Sprintf("lost %d pts, searching", res.Lost)
	case res.Mode == tracking.ModeTracking && r.lastMode == tracking.ModeUninitialized:
		message = fmt.Sprintf("acquired %s, %d pts", res.ROI, len(res.Points))
	}
	r.lastMode = res.Mode

	if res.Mode == tracking.ModeTracking {
		r.lastTrackingTime = time.Now()
	}
	if message == "" {
		return
	}

	debugMsg("OVERLAY", fmt.Sprintf("Event at frame %d: %s", frame, message))
	r.eventHistory = append([]EventEntry{{Time: time.Now(), Frame: frame, Message: message}}, r.eventHistory...)
	if len(r.eventHistory) > r.maxEventHistory {
		r.eventHistory = r.eventHistory[:r.maxEventHistory]
	}
}

// Events returns the recorded events, newest first
func (r *Renderer) Events() []EventEntry {
	out := make([]EventEntry, len(r.eventHistory))
	copy(out, r.eventHistory)
	return out
}

// DrawSignalPanel draws the recent event list and a trace of the signal
// window in a panel on the right side of the frame
func (r *Renderer) DrawSignalPanel(img *gocv.Mat, samples []signal.Sample) {
	panelWidth := 360
	panelHeight := 260
	if img.Cols() < panelWidth+40 || img.Rows() < panelHeight+40 {
		debugMsgVerbose("OVERLAY", "Frame too small for the signal panel")
		return
	}
	panelX := img.Cols() - panelWidth - 20
	panelY := 20

	panelRect := image.Rect(panelX, panelY, panelX+panelWidth, panelY+panelHeight)
	gocv.Rectangle(img, panelRect, color.RGBA{0, 0, 0, 120}, -1)
	gocv.Rectangle(img, panelRect, r.panelColor, 2)

	header := fmt.Sprintf("RESPIRATION: %d samples", len(samples))
	gocv.PutText(img, header, image.Pt(panelX+10, panelY+25), gocv.FontHersheySimplex, 0.6, r.textColor, 2)

	lineY := panelY + 35
	gocv.Line(img, image.Pt(panelX+10, lineY), image.Pt(panelX+panelWidth-10, lineY), r.panelColor, 1)

	trace := image.Rect(panelX+10, lineY+10, panelX+panelWidth-10, lineY+130)
	r.DrawTrace(img, samples, trace)

	listY := trace.Max.Y + 20
	for i, ev := range r.eventHistory {
		if i >= 4 {
			break
		}
		text := fmt.Sprintf("[%d] %s", ev.Frame, ev.Message)
		gocv.PutText(img, text, image.Pt(panelX+10, listY+i*18), gocv.FontHersheySimplex, 0.4, r.textColor, 1)
	}
}

// DrawTrace draws the samples as a polyline scaled to fill area, with
// the window mean as a dashed line. Larger signal values are drawn lower
// so the trace moves the same way as the chest in the image.
func (r *Renderer) DrawTrace(img *gocv.Mat, samples []signal.Sample, area image.Rectangle) {
	if len(samples) < 2 || area.Dx() < 2 || area.Dy() < 2 {
		return
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, s := range samples {
		lo = math.Min(lo, s.Value)
		hi = math.Max(hi, s.Value)
		sum += s.Value
	}
	span := hi - lo
	if span < 1 {
		// keep sub-pixel jitter from filling the whole panel
		mid := (hi + lo) / 2
		lo, hi, span = mid-0.5, mid+0.5, 1
	}

	toPoint := func(i int, v float64) image.Point {
		x := area.Min.X + i*(area.Dx()-1)/(len(samples)-1)
		y := area.Min.Y + int((v-lo)/span*float64(area.Dy()-1))
		return image.Pt(x, y)
	}

	prev := toPoint(0, samples[0].Value)
	for i := 1; i < len(samples); i++ {
		p := toPoint(i, samples[i].Value)
		gocv.Line(img, prev, p, r.signalColor, 1)
		prev = p
	}

	mean := sum / float64(len(samples))
	my := toPoint(0, mean).Y
	r.drawDashedLine(img, image.Pt(area.Min.X, my), image.Pt(area.Max.X, my), r.meanColor, 1)
}

// DrawTerminal draws the recent debug messages in the upper-left corner.
// The terminal stays up while tracking and for a while after tracking was
// lost, then fades out.
func (r *Renderer) DrawTerminal(img *gocv.Mat, messages []string, active bool) {
	now := time.Now()

	if active {
		r.lastTrackingTime = now
		r.fadeStart = time.Time{}
	} else if now.Sub(r.lastTrackingTime) > r.lingerDuration && r.fadeStart.IsZero() {
		r.fadeStart = now
	}

	fadeAlpha := 1.0
	if !r.fadeStart.IsZero() {
		sinceFade := now.Sub(r.fadeStart)
		if sinceFade >= r.fadeDuration {
			return
		}
		fadeAlpha = 1.0 - float64(sinceFade)/float64(r.fadeDuration)
	}

	maxMessages := 20
	lineHeight := 14
	terminalWidth := 520
	if img.Cols() < terminalWidth+40 {
		terminalWidth = img.Cols() - 40
	}
	terminalHeight := maxMessages*lineHeight + 10
	terminalRect := image.Rect(20, 20, 20+terminalWidth, 20+terminalHeight)
	gocv.Rectangle(img, terminalRect, color.RGBA{0, 0, 0, uint8(180 * fadeAlpha)}, -1)

	contentY := 30
	if len(messages) == 0 {
		gocv.PutText(img, "No debug messages available...", image.Pt(30, contentY),
			gocv.FontHersheySimplex, 0.4, color.RGBA{128, 128, 128, uint8(128 * fadeAlpha)}, 1)
		return
	}

	start := 0
	if len(messages) > maxMessages {
		start = len(messages) - maxMessages
	}
	textColor := color.RGBA{255, 255, 255, uint8(255 * fadeAlpha)}
	maxLineLen := terminalWidth / 6
	for _, msg := range messages[start:] {
		if len(msg) > maxLineLen {
			msg = msg[:maxLineLen-3] + "..."
		}
		gocv.PutText(img, msg, image.Pt(30, contentY), gocv.FontHersheySimplex, 0.35, textColor, 1)
		contentY += lineHeight
	}
}

func (r *Renderer) drawDashedLine(img *gocv.Mat, start, end image.Point, c color.RGBA, thickness int) {
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Sqrt(dx*dx + dy*dy)
	angle := math.Atan2(dy, dx)

	dashLength := 10.0
	gapLength := 5.0
	for current := 0.0; current < length; current += dashLength + gapLength {
		dashStart := image.Point{
			X: start.X + int(current*math.Cos(angle)),
			Y: start.Y + int(current*math.Sin(angle)),
		}
		dashEnd := image.Point{
			X: start.X + int(math.Min(current+dashLength, length)*math.Cos(angle)),
			Y: start.Y + int(math.Min(current+dashLength, length)*math.Sin(angle)),
		}
		gocv.Line(img, dashStart, dashEnd, c, thickness)
	}
}
