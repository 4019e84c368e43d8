// Package ffmpeg runs the ffmpeg and ffprobe binaries for the stitching
// pipeline: concat demuxer stream copy, re-encode fallback, duration
// probing and thumbnail frame extraction.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"seam/internal/pkg/logger"
)

// ConcatListName is the demuxer list file written next to the output.
const ConcatListName = "concat_list.txt"

// Runner executes ffmpeg/ffprobe. Zero-value paths fall back to the
// binaries on PATH.
type Runner struct {
	FFmpeg  string
	FFprobe string

	log *logger.Logger
}

func NewRunner(log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Runner{
		FFmpeg:  "ffmpeg",
		FFprobe: "ffprobe",
		log:     log.WithComponent("ffmpeg"),
	}
}

// EncodeOptions controls the re-encode fallback when stream copy fails.
type EncodeOptions struct {
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// DefaultEncodeOptions returns the codec set for a container format.
// The mp4 flags match the classic concat fallback (libx264, preset
// fast, crf 23, aac 128k); webm swaps in VP9/Opus.
func DefaultEncodeOptions(format string) EncodeOptions {
	if format == "webm" {
		return EncodeOptions{
			VideoCodec:   "libvpx-vp9",
			CRF:          32,
			AudioCodec:   "libopus",
			AudioBitrate: "128k",
		}
	}
	return EncodeOptions{
		VideoCodec:   "libx264",
		Preset:       "fast",
		CRF:          23,
		AudioCodec:   "aac",
		AudioBitrate: "128k",
	}
}

// ProbeResult holds the container-level facts we care about.
type ProbeResult struct {
	DurationSeconds float64
}

// WriteConcatList writes the concat demuxer list for the given segment
// paths into dir and returns the list path. Single quotes in paths are
// escaped the way the demuxer expects.
func WriteConcatList(dir string, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no segment paths")
	}

	var b strings.Builder
	for _, p := range paths {
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	listPath := filepath.Join(dir, ConcatListName)
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listPath, nil
}

// concatArgs builds the stream-copy concat command line.
func concatArgs(listPath, outputPath string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
}

// reencodeArgs builds the re-encode fallback command line.
func reencodeArgs(listPath, outputPath string, opts EncodeOptions) []string {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", opts.VideoCodec,
	}
	if opts.Preset != "" {
		args = append(args, "-preset", opts.Preset)
	}
	args = append(args, "-crf", strconv.Itoa(opts.CRF))
	if opts.VideoCodec == "libvpx-vp9" {
		// Constant-quality mode for VP9 needs an explicit zero bitrate.
		args = append(args, "-b:v", "0")
	}
	args = append(args,
		"-c:a", opts.AudioCodec,
		"-b:a", opts.AudioBitrate,
		outputPath,
	)
	return args
}

func thumbnailArgs(inputPath, outputPath string, offsetSeconds float64) []string {
	return []string{
		"-y",
		"-ss", strconv.FormatFloat(offsetSeconds, 'f', 3, 64),
		"-i", inputPath,
		"-vframes", "1",
		"-q:v", "2",
		outputPath,
	}
}

// Concat concatenates the segments in listPath into outputPath using
// stream copy (no re-encoding).
func (r *Runner) Concat(ctx context.Context, listPath, outputPath string) error {
	return r.run(ctx, r.FFmpeg, concatArgs(listPath, outputPath))
}

// ConcatReencode concatenates with a full re-encode. Used when stream
// copy fails, typically because the segments disagree on codec
// parameters.
func (r *Runner) ConcatReencode(ctx context.Context, listPath, outputPath string, opts EncodeOptions) error {
	return r.run(ctx, r.FFmpeg, reencodeArgs(listPath, outputPath, opts))
}

// Thumbnail extracts a single frame at offsetSeconds into outputPath.
func (r *Runner) Thumbnail(ctx context.Context, inputPath, outputPath string, offsetSeconds float64) error {
	return r.run(ctx, r.FFmpeg, thumbnailArgs(inputPath, outputPath, offsetSeconds))
}

// Probe returns container facts for the file. An unparseable duration
// yields 0, not an error; a zero duration on a freshly stitched file is
// worth a warning but should not fail the job.
func (r *Runner) Probe(ctx context.Context, path string) (ProbeResult, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, r.FFprobe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe failed: %w: %s", err, trimStderr(stderr.String()))
	}

	return ProbeResult{DurationSeconds: ParseProbeDuration(stdout.String())}, nil
}

// ParseProbeDuration parses ffprobe's single-value duration output.
func ParseProbeDuration(out string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0
	}
	return v
}

func (r *Runner) run(ctx context.Context, bin string, args []string) error {
	r.log.Debug("running command", "bin", bin, "args", strings.Join(args, " "))
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", bin, err, trimStderr(stderr.String()))
	}

	r.log.Debug("command completed",
		"bin", bin,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// trimStderr keeps error messages bounded; ffmpeg stderr can run to
// many kilobytes and the useful part is at the end.
func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	const max = 2000
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
