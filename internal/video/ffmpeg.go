// Package video wraps the ffmpeg binary used to shrink uploaded videos.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/metrics"
)

const (
	DefaultCRF    = 28
	DefaultPreset = "veryfast"
	// stderrTail bounds how much ffmpeg output is kept for error messages.
	stderrTail = 2048
)

var ErrDisabled = errors.New("video compression is disabled")

// Presets accepted by libx264.
var Presets = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"}

// FFmpeg transcodes videos to H.264/AAC MP4 with the moov atom up front.
type FFmpeg struct {
	binary string
	crf    int
	preset string
	logger zerolog.Logger
}

// New resolves the ffmpeg binary and validates the quality settings.
func New(cfg config.VideoConfig, logger zerolog.Logger) (*FFmpeg, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	binary := cfg.FFmpegPath
	if binary == "" {
		binary = "ffmpeg"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (set FFMPEG_PATH): %w", err)
	}
	crf := cfg.CRF
	if crf < 0 || crf > 51 {
		return nil, fmt.Errorf("crf %d out of range 0-51", crf)
	}
	preset := cfg.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	if !validPreset(preset) {
		return nil, fmt.Errorf("unknown preset %q (want one of %s)", preset, strings.Join(Presets, ", "))
	}
	return &FFmpeg{
		binary: resolved,
		crf:    crf,
		preset: preset,
		logger: logger.With().Str("component", "video").Logger(),
	}, nil
}

func validPreset(preset string) bool {
	for _, p := range Presets {
		if p == preset {
			return true
		}
	}
	return false
}

// Args is the ffmpeg command line for one transcode.
func (f *FFmpeg) Args(inputPath, outputPath string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(f.crf),
		"-preset", f.preset,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		outputPath,
	}
}

// Compress implements media.Compressor.
func (f *FFmpeg) Compress(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, f.binary, f.Args(inputPath, outputPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.VideoCompressionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nStderr: %s", err, tail(stderr.String(), stderrTail))
	}
	f.logger.Debug().
		Str("input", inputPath).
		Dur("duration", time.Since(start)).
		Msg("ffmpeg finished")
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
