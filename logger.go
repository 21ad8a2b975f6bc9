package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// debugMsg is the global convenience function for unified debug logging
func debugMsg(component, message string, sessionID ...string) {
	if globalDebugLogger != nil {
		globalDebugLogger.debugMsg(component, message, sessionID...)
	} else {
		fmt.Printf("[%s][%s] %s\n", time.Now().Format("15:04:05.000"), component, message)
	}
}

// debugMsgVerbose only outputs if debug-verbose flag is enabled
func debugMsgVerbose(component, message string, sessionID ...string) {
	if !*debugVerbose {
		return
	}
	debugMsg(component, message, sessionID...)
}

// DebugLogger provides unified debug message handling for console, files and overlay
type DebugLogger struct {
	enabled        bool
	baseDir        string
	out            io.Writer
	mu             sync.RWMutex
	sessionFiles   map[string]*os.File // sessionID -> file handle
	overlayHistory []DebugMessage      // For overlay terminal
	maxOverlayMsgs int
	writeQueue     chan DebugWriteTask
	stopWorker     chan bool
	workerStopped  sync.WaitGroup
}

// DebugMessage is one logged line
type DebugMessage struct {
	Timestamp time.Time
	Component string
	Message   string
	SessionID string
}

// DebugWriteTask is a queued file write
type DebugWriteTask struct {
	file    *os.File
	content string
}

// NewDebugLogger creates a unified debug logger. When enabled, messages
// tagged with a session ID are also appended to <baseDir>/<sessionID>.txt.
func NewDebugLogger(enabled bool, baseDir string, out io.Writer) *DebugLogger {
	if enabled {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			fmt.Fprintf(out, "[DEBUG_LOGGER] Failed to create debug directory: %v\n", err)
			enabled = false
		}
	}

	dl := &DebugLogger{
		enabled:        enabled,
		baseDir:        baseDir,
		out:            out,
		sessionFiles:   make(map[string]*os.File),
		overlayHistory: make([]DebugMessage, 0),
		maxOverlayMsgs: 50,
		writeQueue:     make(chan DebugWriteTask, 100),
		stopWorker:     make(chan bool, 1),
	}

	if enabled {
		dl.workerStopped.Add(1)
		go dl.fileWriteWorker()
	}
	return dl
}

// debugMsg is the main unified debug function
func (dl *DebugLogger) debugMsg(component, message string, sessionID ...string) {
	timestamp := time.Now()
	line := fmt.Sprintf("[%s][%s] %s", timestamp.Format("15:04:05.000"), component, message)
	fmt.Fprintln(dl.out, line)

	currentSession := ""
	if len(sessionID) > 0 && sessionID[0] != "" {
		currentSession = sessionID[0]
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	// The terminal overlay works independently of debug mode
	dl.overlayHistory = append(dl.overlayHistory, DebugMessage{
		Timestamp: timestamp,
		Component: component,
		Message:   message,
		SessionID: currentSession,
	})
	if len(dl.overlayHistory) > dl.maxOverlayMsgs {
		dl.overlayHistory = dl.overlayHistory[1:]
	}

	if !dl.enabled || currentSession == "" {
		return
	}

	file := dl.getOrCreateSessionFile(currentSession)
	if file == nil {
		return
	}
	select {
	case dl.writeQueue <- DebugWriteTask{file: file, content: line + "\n"}:
	default:
		// Queue full, drop message to prevent blocking
	}
}

// getOrCreateSessionFile opens the per-session log in append mode
func (dl *DebugLogger) getOrCreateSessionFile(sessionID string) *os.File {
	if file, exists := dl.sessionFiles[sessionID]; exists {
		return file
	}

	path := filepath.Join(dl.baseDir, sessionID+".txt")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(dl.out, "[DEBUG_LOGGER] Failed to open session log %s: %v\n", path, err)
		return nil
	}

	if info, err := file.Stat(); err == nil && info.Size() == 0 {
		header := fmt.Sprintf("=== RESPICAM SESSION LOG: %s ===\nStarted: %s\n\n",
			sessionID, time.Now().Format("2006-01-02 15:04:05"))
		file.WriteString(header)
	}

	dl.sessionFiles[sessionID] = file
	return file
}

// fileWriteWorker handles async file writing
func (dl *DebugLogger) fileWriteWorker() {
	defer dl.workerStopped.Done()

	for {
		select {
		case task := <-dl.writeQueue:
			task.file.WriteString(task.content)
		case <-dl.stopWorker:
			for len(dl.writeQueue) > 0 {
				task := <-dl.writeQueue
				task.file.WriteString(task.content)
			}
			return
		}
	}
}

// GetOverlayHistory returns recent messages for the terminal overlay
func (dl *DebugLogger) GetOverlayHistory() []string {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	lines := make([]string, len(dl.overlayHistory))
	for i, msg := range dl.overlayHistory {
		lines[i] = fmt.Sprintf("[%s][%s] %s", msg.Timestamp.Format("15:04:05"), msg.Component, msg.Message)
	}
	return lines
}

// Close flushes and closes the session files
func (dl *DebugLogger) Close() {
	if !dl.enabled {
		return
	}

	dl.stopWorker <- true
	dl.workerStopped.Wait()

	dl.mu.Lock()
	for sessionID, file := range dl.sessionFiles {
		file.Sync()
		file.Close()
		delete(dl.sessionFiles, sessionID)
	}
	dl.mu.Unlock()
}
