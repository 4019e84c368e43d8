package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"seam/internal/pkg/errors"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("segment bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient()

	path, err := c.Download(context.Background(), srv.URL+"/seg0", dir, 0)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if filepath.Base(path) != "segment_000.mp4" {
		t.Errorf("expected segment_000.mp4, got %s", filepath.Base(path))
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(body) != "segment bytes" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestDownloadWebmContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		_, _ = w.Write([]byte("webm bytes"))
	}))
	defer srv.Close()

	path, err := NewClient().Download(context.Background(), srv.URL+"/seg", t.TempDir(), 7)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if filepath.Base(path) != "segment_007.webm" {
		t.Errorf("expected segment_007.webm, got %s", filepath.Base(path))
	}
}

func TestDownloadUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient().Download(context.Background(), srv.URL+"/seg", t.TempDir(), 0)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !errors.IsCode(err, errors.CodeUpstream) {
		t.Errorf("expected %s, got %s", errors.CodeUpstream, errors.GetCode(err))
	}
}

func TestExtForSegment(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"mp4 content type", "http://x/a", "video/mp4", ".mp4"},
		{"webm content type", "http://x/a", "video/webm", ".webm"},
		{"webm url suffix", "http://x/a.webm", "", ".webm"},
		{"empty everything", "http://x/a", "", ".mp4"},
		{"webm uppercase type", "http://x/a", "Video/WEBM", ".webm"},
		{"octet stream mp4 url", "http://x/a.mp4", "application/octet-stream", ".mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtForSegment(tt.url, tt.contentType); got != tt.want {
				t.Errorf("ExtForSegment(%q, %q) = %q, want %q", tt.url, tt.contentType, got, tt.want)
			}
		})
	}
}
