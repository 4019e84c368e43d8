// Package fetch downloads segment source files over HTTP for the worker.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seam/internal/pkg/errors"
)

// DefaultTimeout bounds a single segment download.
const DefaultTimeout = 120 * time.Second

type Client struct {
	client *http.Client
}

func NewClient() *Client {
	return &Client{
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// Download fetches url into dir as segment_NNN.<ext> and returns the
// local path. The extension comes from the response content type with
// the URL suffix as fallback; anything that isn't webm is treated as
// mp4, matching what the stitcher expects to concat.
func (c *Client) Download(ctx context.Context, url, dir string, index int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeValidation, "fetch.request", "invalid segment URL")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUpstream, "fetch.get", "segment download failed").
			WithField("url", url)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", errors.Upstream(url, fmt.Sprintf("segment download returned status %d", res.StatusCode))
	}

	ext := ExtForSegment(url, res.Header.Get("Content-Type"))
	path := filepath.Join(dir, fmt.Sprintf("segment_%03d%s", index, ext))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create segment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, res.Body); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUpstream, "fetch.copy", "segment body read failed").
			WithField("url", url)
	}

	return path, nil
}

// ExtForSegment picks the on-disk extension for a downloaded segment.
func ExtForSegment(url, contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "webm") || strings.HasSuffix(url, ".webm") {
		return ".webm"
	}
	return ".mp4"
}
