package capture

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		input      string
		wantDevice int
		wantOK     bool
	}{
		{"0", 0, true},
		{" 2 ", 2, true},
		{"-1", 0, false},
		{"video.mp4", 0, false},
		{"rtsp://cam.local:554/stream", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			device, ok := parseInput(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDevice, device)
		})
	}
}

func TestIsStream(t *testing.T) {
	assert.True(t, isStream("rtsp://cam.local/stream"))
	assert.True(t, isStream("http://cam.local/mjpeg"))
	assert.False(t, isStream("/data/baby.mp4"))
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}
