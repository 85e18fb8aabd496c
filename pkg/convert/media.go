package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zenetia/zap/pkg/utils"
)

// ffmpegBin is variable so tests can point it at a stub.
var ffmpegBin = "ffmpeg"

// runFFmpeg executes ffmpeg with the given arguments. Output files are
// overwritten; stderr is captured and attached to the error since ffmpeg
// reports everything there.
func runFFmpeg(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, ffmpegBin, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, utils.TruncateString(strings.TrimSpace(stderr.String()), 512))
	}
	return nil
}

// AudioService drives ffmpeg for audio operations.
type AudioService struct{}

func NewAudioService() *AudioService {
	return &AudioService{}
}

// Convert transcodes into the format implied by the output extension.
func (s *AudioService) Convert(ctx context.Context, input, output string) error {
	return runFFmpeg(ctx, "-i", input, output)
}

// Trim cuts a clip starting at start seconds with the given duration.
func (s *AudioService) Trim(ctx context.Context, input, output string, start, duration float64) error {
	if start < 0 || duration <= 0 {
		return fmt.Errorf("invalid trim window start=%g duration=%g", start, duration)
	}
	return runFFmpeg(ctx,
		"-i", input,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		output)
}

// Merge concatenates the inputs back to back, re-encoding so mixed
// source codecs are tolerated.
func (s *AudioService) Merge(ctx context.Context, inputs []string, output string) error {
	if len(inputs) < 2 {
		return fmt.Errorf("merge requires at least 2 files, got %d", len(inputs))
	}

	list, err := writeConcatList(inputs)
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(list)
	}()

	return runFFmpeg(ctx, "-f", "concat", "-safe", "0", "-i", list, output)
}

// AdjustVolume changes loudness by the given amount in decibels.
func (s *AudioService) AdjustVolume(ctx context.Context, input, output string, db float64) error {
	return runFFmpeg(ctx,
		"-i", input,
		"-filter:a", fmt.Sprintf("volume=%gdB", db),
		output)
}

// VideoService drives ffmpeg for video operations.
type VideoService struct{}

func NewVideoService() *VideoService {
	return &VideoService{}
}

// Convert transcodes into the format implied by the output extension.
func (s *VideoService) Convert(ctx context.Context, input, output string) error {
	return runFFmpeg(ctx, "-i", input, output)
}

// Compress re-encodes with libx264 at the given constant rate factor.
// Higher CRF means smaller files; 23 is ffmpeg's default.
func (s *VideoService) Compress(ctx context.Context, input, output string, crf int) error {
	if crf < 0 || crf > 51 {
		return fmt.Errorf("crf must be between 0 and 51, got %d", crf)
	}
	return runFFmpeg(ctx,
		"-i", input,
		"-vcodec", "libx264",
		"-crf", strconv.Itoa(crf),
		output)
}

// Trim cuts a clip without re-encoding.
func (s *VideoService) Trim(ctx context.Context, input, output string, start, duration float64) error {
	if start < 0 || duration <= 0 {
		return fmt.Errorf("invalid trim window start=%g duration=%g", start, duration)
	}
	return runFFmpeg(ctx,
		"-i", input,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-c", "copy",
		output)
}

// ToGIF converts a video to an animated GIF at the given frame rate,
// scaled to the given width with aspect preserved.
func (s *VideoService) ToGIF(ctx context.Context, input, output string, fps, width int) error {
	if fps <= 0 {
		fps = 10
	}
	if width <= 0 {
		width = 480
	}
	return runFFmpeg(ctx,
		"-i", input,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", fps, width),
		output)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeConcatList writes the file list consumed by ffmpeg's concat
// demuxer and returns its path.
func writeConcatList(inputs []string) (string, error) {
	f, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}

	var b strings.Builder
	for _, in := range inputs {
		// Single quotes in paths must be escaped for the concat demuxer
		b.WriteString("file '" + strings.ReplaceAll(in, "'", `'\''`) + "'\n")
	}

	_, err = f.WriteString(b.String())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}

	return f.Name(), nil
}
