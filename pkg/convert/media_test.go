package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFFmpeg swaps ffmpegBin for a shell script and restores it after
// the test.
func stubFFmpeg(t *testing.T, script string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	prev := ffmpegBin
	ffmpegBin = path
	t.Cleanup(func() { ffmpegBin = prev })
}

func TestRunFFmpeg_SurfacesStderr(t *testing.T) {
	stubFFmpeg(t, `echo "Unknown encoder 'wat'" >&2; exit 1`)

	err := runFFmpeg(context.Background(), "-i", "in.mp3", "out.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown encoder 'wat'")
}

func TestRunFFmpeg_Success(t *testing.T) {
	stubFFmpeg(t, "exit 0")

	assert.NoError(t, runFFmpeg(context.Background(), "-i", "in.mp3", "out.wav"))
}

func TestAudioTrim_RejectsBadWindow(t *testing.T) {
	svc := NewAudioService()

	assert.Error(t, svc.Trim(context.Background(), "in.mp3", "out.mp3", -1, 5))
	assert.Error(t, svc.Trim(context.Background(), "in.mp3", "out.mp3", 0, 0))
}

func TestAudioMerge_RequiresTwoInputs(t *testing.T) {
	svc := NewAudioService()

	err := svc.Merge(context.Background(), []string{"solo.mp3"}, "out.mp3")
	assert.Error(t, err)
}

func TestVideoCompress_RejectsBadCRF(t *testing.T) {
	stubFFmpeg(t, "exit 0")
	svc := NewVideoService()

	assert.Error(t, svc.Compress(context.Background(), "in.mp4", "out.mp4", -1))
	assert.Error(t, svc.Compress(context.Background(), "in.mp4", "out.mp4", 52))
	assert.NoError(t, svc.Compress(context.Background(), "in.mp4", "out.mp4", 23))
}

func TestWriteConcatList(t *testing.T) {
	list, err := writeConcatList([]string{"/tmp/a.mp3", "/tmp/it's.mp3"})
	require.NoError(t, err)
	defer func() {
		_ = os.Remove(list)
	}()

	body, err := os.ReadFile(list)
	require.NoError(t, err)
	assert.Equal(t, "file '/tmp/a.mp3'\nfile '/tmp/it'\\''s.mp3'\n", string(body))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0", formatSeconds(0))
	assert.Equal(t, "1.5", formatSeconds(1.5))
	assert.Equal(t, "90", formatSeconds(90))
}
