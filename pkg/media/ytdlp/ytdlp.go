// Package ytdlp wraps the yt-dlp executable for metadata extraction and
// media download. Every media service delegates its network-facing work
// here; the services themselves only parse URLs and result JSON.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/osutil"
	mediatypes "github.com/jlevy/kash-media/pkg/types/media"
)

const (
	// DefaultBinary is the executable looked up on PATH.
	DefaultBinary = "yt-dlp"
	// DefaultTimeout bounds a single yt-dlp invocation.
	DefaultTimeout = 15 * time.Minute

	extractRetries = 3
)

// ErrBinaryMissing indicates yt-dlp is not installed or not on PATH.
var ErrBinaryMissing = errors.New("yt-dlp binary not found, install it from https://github.com/yt-dlp/yt-dlp")

// Runner invokes yt-dlp.
type Runner struct {
	Binary     string
	CookieFile string
	Timeout    time.Duration
}

// NewRunner returns a Runner with defaults.
func NewRunner() *Runner {
	return &Runner{
		Binary:  DefaultBinary,
		Timeout: DefaultTimeout,
	}
}

// DownloadOptions selects what to download.
type DownloadOptions struct {
	// MediaTypes to produce. Empty means both audio and video.
	MediaTypes []mediatypes.Type
	// Slice limits the download to a time range.
	Slice *mediatypes.Slice
}

func (r *Runner) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return DefaultBinary
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

// CheckAvailable verifies the yt-dlp binary can be found.
func (r *Runner) CheckAvailable() error {
	if _, err := exec.LookPath(r.binary()); err != nil {
		return ErrBinaryMissing
	}
	return nil
}

// ExtractInfo fetches the info JSON for a URL without downloading media.
// Channel and playlist URLs yield an "entries" list.
func (r *Runner) ExtractInfo(ctx context.Context, url string) (map[string]any, error) {
	if err := r.CheckAvailable(); err != nil {
		return nil, err
	}

	args := []string{
		"--dump-single-json",
		"--no-download",
		"--no-warnings",
		"--flat-playlist",
	}
	args = r.appendCommonArgs(args)
	args = append(args, url)

	var info map[string]any
	err := retry.Do(
		func() error {
			out, err := r.run(ctx, args)
			if err != nil {
				return err
			}
			if jsonErr := json.Unmarshal(out, &info); jsonErr != nil {
				return retry.Unrecoverable(errors.Wrap(jsonErr, "failed to parse yt-dlp info JSON"))
			}
			return nil
		},
		retry.Attempts(extractRetries),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying yt-dlp info extraction")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to extract info for %s", url)
	}
	return info, nil
}

// Download fetches media for a URL into destDir and returns the produced
// file per media type. File names follow yt-dlp's %(id)s.%(ext)s template.
func (r *Runner) Download(ctx context.Context, url, destDir string, opts DownloadOptions) (map[mediatypes.Type]string, error) {
	if err := r.CheckAvailable(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create download directory")
	}

	want := opts.MediaTypes
	if len(want) == 0 {
		want = []mediatypes.Type{mediatypes.TypeAudio, mediatypes.TypeVideo}
	}

	results := make(map[mediatypes.Type]string, len(want))
	for _, mt := range want {
		path, err := r.downloadOne(ctx, url, destDir, mt, opts.Slice)
		if err != nil {
			return nil, err
		}
		results[mt] = path
	}
	return results, nil
}

func (r *Runner) downloadOne(ctx context.Context, url, destDir string, mt mediatypes.Type, slice *mediatypes.Slice) (string, error) {
	args := []string{"--no-warnings"}
	switch mt {
	case mediatypes.TypeAudio:
		args = append(args,
			"-f", "bestaudio/best",
			"--extract-audio",
			"--audio-format", "mp3",
			"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		)
	case mediatypes.TypeVideo:
		args = append(args,
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--merge-output-format", "mp4",
			"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		)
	default:
		return "", errors.Errorf("unsupported media type %q", mt)
	}
	if slice != nil {
		if err := slice.Validate(); err != nil {
			return "", err
		}
		args = append(args, "--download-sections",
			fmt.Sprintf("*%s-%s", mediatypes.FormatTimestamp(slice.Start), mediatypes.FormatTimestamp(slice.End)),
			"--force-keyframes-at-cuts",
		)
	}
	args = r.appendCommonArgs(args)

	// Resolve the output path up front so we can find the produced file.
	printedArgs := append([]string{}, args...)
	printedArgs = append(printedArgs, "--print", "after_move:filepath", "--no-simulate", url)

	out, err := r.run(ctx, printedArgs)
	if err != nil {
		return "", errors.Wrapf(err, "failed to download %s media for %s", mt, url)
	}

	path := lastNonEmptyLine(string(out))
	if path == "" || !fileExists(path) {
		// Fall back to probing destDir for a fresh file with a known extension.
		probed, probeErr := probeDownloaded(destDir, mt)
		if probeErr != nil {
			return "", errors.Wrapf(probeErr, "yt-dlp reported no output path for %s", url)
		}
		path = probed
	}
	logger.G(ctx).WithField("path", path).WithField("media_type", string(mt)).Debug("downloaded media file")
	return path, nil
}

func (r *Runner) appendCommonArgs(args []string) []string {
	if r.CookieFile != "" {
		args = append(args, "--cookies", r.CookieFile)
	}
	return args
}

func (r *Runner) run(ctx context.Context, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary(), args...)
	// yt-dlp spawns ffmpeg children; kill the whole group on timeout.
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.G(ctx).WithField("args", strings.Join(args, " ")).Debug("running yt-dlp")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Errorf("yt-dlp timed out after %s", r.timeout())
		}
		return nil, errors.Wrapf(err, "yt-dlp failed: %s", stderrTail(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// stderrTail keeps the last few lines of stderr, where yt-dlp puts the
// actual error.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var extsByType = map[mediatypes.Type][]string{
	mediatypes.TypeAudio: {".mp3", ".m4a", ".opus", ".ogg"},
	mediatypes.TypeVideo: {".mp4", ".mkv", ".webm"},
}

func probeDownloaded(destDir string, mt mediatypes.Type) (string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to read download directory")
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(extsByType[mt], ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newest = filepath.Join(destDir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", errors.Errorf("no %s file found in %s", mt, destDir)
	}
	return newest, nil
}
