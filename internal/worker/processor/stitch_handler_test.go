package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"seam/internal/media/ffmpeg"
)

type fakeRunner struct {
	concatErr   error
	reencodeErr error
	probe       ffmpeg.ProbeResult
	probeErr    error

	concatCalls   int
	reencodeCalls int
	reencodeOpts  ffmpeg.EncodeOptions
	thumbCalls    int
	thumbOffset   float64
}

func (f *fakeRunner) Concat(ctx context.Context, listPath, outputPath string) error {
	f.concatCalls++
	if f.concatErr != nil {
		return f.concatErr
	}
	return os.WriteFile(outputPath, []byte("stitched"), 0o644)
}

func (f *fakeRunner) ConcatReencode(ctx context.Context, listPath, outputPath string, opts ffmpeg.EncodeOptions) error {
	f.reencodeCalls++
	f.reencodeOpts = opts
	if f.reencodeErr != nil {
		return f.reencodeErr
	}
	return os.WriteFile(outputPath, []byte("reencoded"), 0o644)
}

func (f *fakeRunner) Thumbnail(ctx context.Context, inputPath, outputPath string, offsetSeconds float64) error {
	f.thumbCalls++
	f.thumbOffset = offsetSeconds
	return os.WriteFile(outputPath, []byte("jpeg"), 0o644)
}

func (f *fakeRunner) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	return f.probe, f.probeErr
}

func stitchRequest() StitchRequest {
	return StitchRequest{
		JobID:        "job_1",
		SegmentPaths: []string{"/tmp/seg0.webm", "/tmp/seg1.webm"},
		OutputKeys:   GenerateOutputKeys("job_1", "mp4", true),
		OutputFormat: "mp4",
		Params:       map[string]any{},
	}
}

func TestStitchStreamCopy(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{probe: ffmpeg.ProbeResult{DurationSeconds: 12.5}}
	sh := NewStitchHandler(runner, root, nil)

	result, err := sh.Stitch(context.Background(), stitchRequest())
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}

	if result.Reencoded {
		t.Error("Reencoded should be false on stream copy success")
	}
	if runner.reencodeCalls != 0 {
		t.Errorf("reencodeCalls = %d, want 0", runner.reencodeCalls)
	}
	if result.DurationSeconds != 12.5 {
		t.Errorf("DurationSeconds = %v, want 12.5", result.DurationSeconds)
	}
	if result.SegmentsCount != 2 {
		t.Errorf("SegmentsCount = %d, want 2", result.SegmentsCount)
	}
	if result.SizeBytes == 0 {
		t.Error("SizeBytes should be set from the output file")
	}
	if runner.thumbCalls != 1 {
		t.Errorf("thumbCalls = %d, want 1", runner.thumbCalls)
	}
	if runner.thumbOffset != 1 {
		t.Errorf("thumbOffset = %v, want 1", runner.thumbOffset)
	}

	listPath := filepath.Join(root, "renders", "job_1", ffmpeg.ConcatListName)
	if _, err := os.Stat(listPath); err != nil {
		t.Errorf("concat list not written: %v", err)
	}
}

func TestStitchFallsBackToReencode(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{
		concatErr: errors.New("codec mismatch"),
		probe:     ffmpeg.ProbeResult{DurationSeconds: 3},
	}
	sh := NewStitchHandler(runner, root, nil)

	result, err := sh.Stitch(context.Background(), stitchRequest())
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}

	if !result.Reencoded {
		t.Error("Reencoded should be true after fallback")
	}
	if runner.concatCalls != 1 || runner.reencodeCalls != 1 {
		t.Errorf("calls = (%d,%d), want (1,1)", runner.concatCalls, runner.reencodeCalls)
	}
	if runner.reencodeOpts.VideoCodec != "libx264" {
		t.Errorf("VideoCodec = %q, want libx264", runner.reencodeOpts.VideoCodec)
	}
}

func TestStitchFailsWhenBothPassesFail(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{
		concatErr:   errors.New("copy failed"),
		reencodeErr: errors.New("encode failed"),
	}
	sh := NewStitchHandler(runner, root, nil)

	if _, err := sh.Stitch(context.Background(), stitchRequest()); err == nil {
		t.Fatal("Stitch() should fail when re-encode also fails")
	}
}

func TestStitchProbeFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{probeErr: errors.New("probe broke")}
	sh := NewStitchHandler(runner, root, nil)

	result, err := sh.Stitch(context.Background(), stitchRequest())
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}
	if result.DurationSeconds != 0 {
		t.Errorf("DurationSeconds = %v, want 0", result.DurationSeconds)
	}
	if runner.thumbOffset != 0 {
		t.Errorf("thumbOffset = %v, want 0 for unknown duration", runner.thumbOffset)
	}
}

func TestStitchSkipsThumbnailWhenDisabled(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{probe: ffmpeg.ProbeResult{DurationSeconds: 5}}
	sh := NewStitchHandler(runner, root, nil)

	req := stitchRequest()
	req.OutputKeys = GenerateOutputKeys("job_1", "mp4", false)

	if _, err := sh.Stitch(context.Background(), req); err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}
	if runner.thumbCalls != 0 {
		t.Errorf("thumbCalls = %d, want 0", runner.thumbCalls)
	}
}

func TestEncodeOptionsFromParams(t *testing.T) {
	params := map[string]any{
		"video_codec":   "libx265",
		"preset":        "slow",
		"crf":           float64(18),
		"audio_codec":   "libopus",
		"audio_bitrate": "192k",
	}

	opts := EncodeOptionsFromParams("mp4", params)

	if opts.VideoCodec != "libx265" {
		t.Errorf("VideoCodec = %q", opts.VideoCodec)
	}
	if opts.Preset != "slow" {
		t.Errorf("Preset = %q", opts.Preset)
	}
	if opts.CRF != 18 {
		t.Errorf("CRF = %d", opts.CRF)
	}
	if opts.AudioCodec != "libopus" {
		t.Errorf("AudioCodec = %q", opts.AudioCodec)
	}
	if opts.AudioBitrate != "192k" {
		t.Errorf("AudioBitrate = %q", opts.AudioBitrate)
	}
}

func TestEncodeOptionsFromParamsDefaults(t *testing.T) {
	opts := EncodeOptionsFromParams("webm", map[string]any{})

	want := ffmpeg.DefaultEncodeOptions("webm")
	if opts != want {
		t.Errorf("opts = %+v, want %+v", opts, want)
	}
}
