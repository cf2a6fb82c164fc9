package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// MediaAnalyzer is the deep-format fallback. Analyze returns nil when the
// file is a recognised media or container format and an error otherwise.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, path string) error
}

var (
	// ErrUnrecognized is returned by analyzers that ran but found no known format.
	ErrUnrecognized = errors.New("unrecognized format")
	// ErrAnalyzerUnavailable is returned when the analyzer tool could not run
	// to completion. No verdict can be drawn from it.
	ErrAnalyzerUnavailable = errors.New("media analyzer unavailable")
)

// FFprobeAnalyzer recognises media containers with ffprobe.
type FFprobeAnalyzer struct {
	Binary string
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		NBStreams  int    `json:"nb_streams"`
	} `json:"format"`
}

// Analyze executes ffprobe against path and decodes the JSON response.
func (a FFprobeAnalyzer) Analyze(ctx context.Context, path string) error {
	binary := strings.TrimSpace(a.Binary)
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if ctx.Err() == nil && errors.As(err, &exitErr) {
			// ffprobe ran and rejected the file.
			return fmt.Errorf("ffprobe inspect: %w: %v", ErrUnrecognized, err)
		}
		return fmt.Errorf("ffprobe inspect: %w: %w", ErrAnalyzerUnavailable, err)
	}
	return recognized(output)
}

// recognized decides whether decoded ffprobe output describes real media.
// The tty demuxer claims plain text files, so it does not count.
func recognized(output []byte) error {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return fmt.Errorf("ffprobe parse: %w", err)
	}

	name := strings.TrimSpace(result.Format.FormatName)
	if name == "" || name == "tty" {
		return ErrUnrecognized
	}
	if len(result.Streams) == 0 && result.Format.NBStreams == 0 {
		return ErrUnrecognized
	}
	return nil
}
