package main

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"respicam/signal"
	"respicam/tracking"

	"github.com/gofiber/fiber/v2"
)

// StatusSnapshot is the JSON body of GET /status
type StatusSnapshot struct {
	SessionID string        `json:"session_id"`
	Frame     int64         `json:"frame"`
	Mode      string        `json:"mode"`
	Outcome   string        `json:"outcome"`
	Signal    *float64      `json:"signal"`
	Reason    string        `json:"reason,omitempty"`
	ROI       *tracking.ROI `json:"roi,omitempty"`
	Points    int           `json:"points"`
	Episodes  int           `json:"episodes"`
	FPS       float64       `json:"fps"`
	Provider  string        `json:"provider,omitempty"`
	Updated   time.Time     `json:"updated"`
}

// StatusServer exposes the latest tracking result over HTTP
type StatusServer struct {
	app         *fiber.App
	window      *signal.Window
	plotter     *signal.Plotter
	mu          sync.RWMutex
	snapshot    StatusSnapshot
	frameHeight int
}

// NewStatusServer builds the fiber app and its routes
func NewStatusServer(window *signal.Window, plotter *signal.Plotter) *StatusServer {
	s := &StatusServer{
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		window:  window,
		plotter: plotter,
	}

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/status", s.getStatus)
	s.app.Get("/signal", s.getSignal)
	s.app.Get("/plot.png", s.getPlot)
	return s
}

// Update replaces the snapshot served by GET /status
func (s *StatusServer) Update(sessionID string, frame int64, res tracking.Result, episodes int, fps float64, provider string, frameHeight int) {
	snap := StatusSnapshot{
		SessionID: sessionID,
		Frame:     frame,
		Mode:      res.Mode.String(),
		Outcome:   res.Outcome.String(),
		Points:    len(res.Points),
		Episodes:  episodes,
		FPS:       fps,
		Provider:  provider,
		Updated:   time.Now(),
	}
	if res.HasSignal() {
		v := res.Signal
		snap.Signal = &v
	}
	if res.Reason != nil {
		snap.Reason = res.Reason.Error()
	}
	if res.Mode == tracking.ModeTracking {
		roi := res.ROI
		snap.ROI = &roi
	}

	s.mu.Lock()
	s.snapshot = snap
	s.frameHeight = frameHeight
	s.mu.Unlock()
}

func (s *StatusServer) getStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	return c.JSON(snap)
}

func (s *StatusServer) getSignal(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"samples": s.window.Samples()})
}

func (s *StatusServer) getPlot(c *fiber.Ctx) error {
	s.mu.RLock()
	height := s.frameHeight
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := s.plotter.WritePNG(&buf, s.window.Samples(), height); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

// Start serves on addr in the background
func (s *StatusServer) Start(addr string) {
	go func() {
		debugMsg("HTTP", fmt.Sprintf("Status endpoint listening on %s", addr))
		if err := s.app.Listen(addr); err != nil {
			debugMsg("HTTP", fmt.Sprintf("Status endpoint stopped: %v", err))
		}
	}()
}

// Shutdown stops the HTTP server
func (s *StatusServer) Shutdown() error {
	return s.app.Shutdown()
}
