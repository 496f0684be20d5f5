package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
)

// ErrFFmpegMissing indicates ffmpeg is not installed or not on PATH.
var ErrFFmpegMissing = errors.New("ffmpeg binary not found, install it from https://ffmpeg.org")

const (
	ffmpegBinary       = "ffmpeg"
	perFrameTimeout    = time.Minute
	perceptionHashBits = 64
)

// CaptureFrames grabs one frame from the video at each timestamp (in
// seconds) and writes JPEGs named after prefix into destDir. The returned
// paths are index-aligned with timestamps.
func CaptureFrames(ctx context.Context, videoPath string, timestamps []float64, destDir, prefix string) ([]string, error) {
	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		return nil, ErrFFmpegMissing
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create frame directory")
	}

	paths := make([]string, 0, len(timestamps))
	for i, ts := range timestamps {
		out := filepath.Join(destDir, fmt.Sprintf("%s-frame-%04d.jpg", prefix, i))
		if err := captureOne(ctx, videoPath, ts, out); err != nil {
			return nil, errors.Wrapf(err, "capturing frame at %.1fs", ts)
		}
		paths = append(paths, out)
	}
	logger.G(ctx).WithField("count", len(paths)).WithField("dir", destDir).Debug("captured video frames")
	return paths, nil
}

func captureOne(ctx context.Context, videoPath string, seconds float64, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, perFrameTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", seconds),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outPath,
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Errorf("ffmpeg timed out after %s", perFrameTimeout)
		}
		return errors.Wrapf(err, "ffmpeg failed: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

// FilterSimilarFrames returns the indices of frames to keep, dropping
// each frame whose perceptual similarity to the previously kept frame is
// at or above threshold. Higher thresholds keep more frames; 1 drops only
// exact duplicates. Frames that cannot be decoded are kept so their
// timestamps are not lost silently.
func FilterSimilarFrames(ctx context.Context, paths []string, threshold float64) []int {
	kept := make([]int, 0, len(paths))
	var lastHash *goimagehash.ImageHash
	for i, path := range paths {
		hash, err := hashFrame(path)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("path", path).Warn("keeping undecodable frame")
			kept = append(kept, i)
			lastHash = nil
			continue
		}
		if lastHash != nil {
			distance, err := lastHash.Distance(hash)
			if err == nil && similarity(distance) >= threshold {
				continue
			}
		}
		kept = append(kept, i)
		lastHash = hash
	}
	return kept
}

func hashFrame(path string) (*goimagehash.ImageHash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open frame %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode frame %s", path)
	}
	return goimagehash.PerceptionHash(img)
}

// similarity maps a perception-hash Hamming distance onto 0..1, where 1
// is identical.
func similarity(distance int) float64 {
	return 1 - float64(distance)/perceptionHashBits
}
