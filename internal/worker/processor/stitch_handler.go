package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"seam/internal/media/ffmpeg"
	"seam/internal/pkg/logger"
)

// MediaRunner is the slice of ffmpeg.Runner the stitch stage needs.
type MediaRunner interface {
	Concat(ctx context.Context, listPath, outputPath string) error
	ConcatReencode(ctx context.Context, listPath, outputPath string, opts ffmpeg.EncodeOptions) error
	Thumbnail(ctx context.Context, inputPath, outputPath string, offsetSeconds float64) error
	Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
}

type StitchHandler struct {
	runner      MediaRunner
	storageRoot string
	log         *logger.Logger
}

func NewStitchHandler(runner MediaRunner, storageRoot string, log *logger.Logger) *StitchHandler {
	if log == nil {
		log = logger.NewDefault()
	}
	return &StitchHandler{
		runner:      runner,
		storageRoot: storageRoot,
		log:         log.WithComponent("stitch"),
	}
}

type StitchRequest struct {
	JobID        string
	SegmentPaths []string
	OutputKeys   *OutputKeys
	OutputFormat string
	Params       map[string]any
}

type StitchResult struct {
	DurationSeconds float64
	SizeBytes       int64
	SegmentsCount   int
	Reencoded       bool
}

// Stitch concatenates the downloaded segments into the video output
// key, falling back to a re-encode when stream copy fails, then probes
// the result and extracts the thumbnail frame if one was requested.
func (sh *StitchHandler) Stitch(ctx context.Context, req StitchRequest) (*StitchResult, error) {
	log := sh.log.WithJobID(req.JobID)

	outputPath := filepath.Join(sh.storageRoot, filepath.FromSlash(req.OutputKeys.Video))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create render directory: %w", err)
	}

	listPath, err := ffmpeg.WriteConcatList(filepath.Dir(outputPath), req.SegmentPaths)
	if err != nil {
		return nil, err
	}

	result := &StitchResult{SegmentsCount: len(req.SegmentPaths)}

	if err := sh.runner.Concat(ctx, listPath, outputPath); err != nil {
		// Stream copy fails when segments disagree on codec
		// parameters; retry exactly once with a re-encode.
		log.Warn("stream copy failed, retrying with re-encode", "error", err.Error())

		opts := EncodeOptionsFromParams(req.OutputFormat, req.Params)
		if err := sh.runner.ConcatReencode(ctx, listPath, outputPath, opts); err != nil {
			return nil, fmt.Errorf("concat re-encode failed: %w", err)
		}
		result.Reencoded = true
	}

	probe, err := sh.runner.Probe(ctx, outputPath)
	if err != nil {
		log.Warn("probe failed on stitched output", "error", err.Error())
	}
	result.DurationSeconds = probe.DurationSeconds

	st, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stitched output missing: %w", err)
	}
	result.SizeBytes = st.Size()

	if req.OutputKeys.Thumb != "" {
		thumbPath := filepath.Join(sh.storageRoot, filepath.FromSlash(req.OutputKeys.Thumb))
		offset := thumbnailOffset(result.DurationSeconds)
		if err := sh.runner.Thumbnail(ctx, outputPath, thumbPath, offset); err != nil {
			return nil, fmt.Errorf("thumbnail extraction failed: %w", err)
		}
	}

	return result, nil
}

// thumbnailOffset picks the frame timestamp for the thumbnail. One
// second in unless the video is too short for that.
func thumbnailOffset(durationSeconds float64) float64 {
	if durationSeconds >= 2 {
		return 1
	}
	return 0
}

// EncodeOptionsFromParams builds the re-encode options for a format,
// letting job params (or profile defaults) override the codec set.
func EncodeOptionsFromParams(format string, params map[string]any) ffmpeg.EncodeOptions {
	opts := ffmpeg.DefaultEncodeOptions(format)

	if v, ok := params["video_codec"].(string); ok && strings.TrimSpace(v) != "" {
		opts.VideoCodec = strings.TrimSpace(v)
	}
	if v, ok := params["preset"].(string); ok && strings.TrimSpace(v) != "" {
		opts.Preset = strings.TrimSpace(v)
	}
	if v, ok := params["crf"].(float64); ok && v >= 0 {
		opts.CRF = int(v)
	}
	if v, ok := params["audio_codec"].(string); ok && strings.TrimSpace(v) != "" {
		opts.AudioCodec = strings.TrimSpace(v)
	}
	if v, ok := params["audio_bitrate"].(string); ok && strings.TrimSpace(v) != "" {
		opts.AudioBitrate = strings.TrimSpace(v)
	}

	return opts
}
