package ffmpeg

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()

	listPath, err := WriteConcatList(dir, []string{
		"/tmp/job/segments/segment_000.mp4",
		"/tmp/job/segments/segment_001.webm",
	})
	if err != nil {
		t.Fatalf("WriteConcatList failed: %v", err)
	}
	if filepath.Base(listPath) != ConcatListName {
		t.Errorf("expected list name %s, got %s", ConcatListName, filepath.Base(listPath))
	}

	body, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatalf("reading list: %v", err)
	}

	want := "file '/tmp/job/segments/segment_000.mp4'\n" +
		"file '/tmp/job/segments/segment_001.webm'\n"
	if string(body) != want {
		t.Errorf("unexpected list body:\n got: %q\nwant: %q", body, want)
	}
}

func TestWriteConcatListEscapesQuotes(t *testing.T) {
	dir := t.TempDir()

	listPath, err := WriteConcatList(dir, []string{"/tmp/it's here/seg.mp4"})
	if err != nil {
		t.Fatalf("WriteConcatList failed: %v", err)
	}

	body, _ := os.ReadFile(listPath)
	if !strings.Contains(string(body), `file '/tmp/it'\''s here/seg.mp4'`) {
		t.Errorf("expected escaped single quote, got: %q", body)
	}
}

func TestWriteConcatListEmpty(t *testing.T) {
	if _, err := WriteConcatList(t.TempDir(), nil); err == nil {
		t.Fatal("expected error for empty path list")
	}
}

func TestConcatArgs(t *testing.T) {
	got := concatArgs("/tmp/list.txt", "/tmp/out.mp4")
	want := []string{
		"-y", "-f", "concat", "-safe", "0",
		"-i", "/tmp/list.txt",
		"-c", "copy",
		"/tmp/out.mp4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("concatArgs mismatch:\n got: %v\nwant: %v", got, want)
	}
}

func TestReencodeArgs(t *testing.T) {
	tests := []struct {
		name string
		opts EncodeOptions
		want []string
	}{
		{
			name: "mp4 defaults",
			opts: DefaultEncodeOptions("mp4"),
			want: []string{
				"-y", "-f", "concat", "-safe", "0",
				"-i", "/tmp/list.txt",
				"-c:v", "libx264",
				"-preset", "fast",
				"-crf", "23",
				"-c:a", "aac",
				"-b:a", "128k",
				"/tmp/out.mp4",
			},
		},
		{
			name: "webm defaults",
			opts: DefaultEncodeOptions("webm"),
			want: []string{
				"-y", "-f", "concat", "-safe", "0",
				"-i", "/tmp/list.txt",
				"-c:v", "libvpx-vp9",
				"-crf", "32",
				"-b:v", "0",
				"-c:a", "libopus",
				"-b:a", "128k",
				"/tmp/out.mp4",
			},
		},
		{
			name: "custom crf and preset",
			opts: EncodeOptions{
				VideoCodec:   "libx264",
				Preset:       "slow",
				CRF:          18,
				AudioCodec:   "aac",
				AudioBitrate: "192k",
			},
			want: []string{
				"-y", "-f", "concat", "-safe", "0",
				"-i", "/tmp/list.txt",
				"-c:v", "libx264",
				"-preset", "slow",
				"-crf", "18",
				"-c:a", "aac",
				"-b:a", "192k",
				"/tmp/out.mp4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reencodeArgs("/tmp/list.txt", "/tmp/out.mp4", tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("reencodeArgs mismatch:\n got: %v\nwant: %v", got, tt.want)
			}
		})
	}
}

func TestThumbnailArgs(t *testing.T) {
	got := thumbnailArgs("/tmp/out.mp4", "/tmp/thumb.jpg", 1.5)
	want := []string{
		"-y",
		"-ss", "1.500",
		"-i", "/tmp/out.mp4",
		"-vframes", "1",
		"-q:v", "2",
		"/tmp/thumb.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("thumbnailArgs mismatch:\n got: %v\nwant: %v", got, want)
	}
}

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.345\n", 12.345},
		{"  0.04  ", 0.04},
		{"N/A\n", 0},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseProbeDuration(tt.in); got != tt.want {
				t.Errorf("ParseProbeDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrimStderr(t *testing.T) {
	long := strings.Repeat("x", 5000) + "tail"
	got := trimStderr(long)
	if len(got) > 2010 {
		t.Errorf("expected trimmed stderr, got %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "tail") {
		t.Error("expected the tail of stderr to be kept")
	}
	if !strings.HasPrefix(got, "...") {
		t.Error("expected truncation marker")
	}
}
