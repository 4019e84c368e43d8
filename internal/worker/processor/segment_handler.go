package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"seam/internal/pkg/logger"
)

// Downloader fetches a single segment URL into dir. Implemented by
// fetch.Client.
type Downloader interface {
	Download(ctx context.Context, url, dir string, index int) (string, error)
}

type SegmentHandler struct {
	downloader  Downloader
	storageRoot string
	log         *logger.Logger
}

func NewSegmentHandler(downloader Downloader, storageRoot string, log *logger.Logger) *SegmentHandler {
	if log == nil {
		log = logger.NewDefault()
	}
	return &SegmentHandler{
		downloader:  downloader,
		storageRoot: storageRoot,
		log:         log.WithComponent("segments"),
	}
}

// Materialize downloads every segment URL into the job's work dir and
// returns the local paths in input order. Order matters: the concat
// list is written in the same order the URLs were submitted.
func (sh *SegmentHandler) Materialize(ctx context.Context, jobID string, urls []string) ([]string, error) {
	baseDir := filepath.Join(sh.storageRoot, "jobs", jobID, "segments")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create segments directory: %w", err)
	}

	log := sh.log.WithJobID(jobID)

	paths := make([]string, 0, len(urls))
	for i, url := range urls {
		segLog := log.WithSegment(i)
		segLog.Debug("downloading segment", "url", url)

		path, err := sh.downloader.Download(ctx, url, baseDir, i)
		if err != nil {
			segLog.Warn("segment download failed", "url", url, "error", err.Error())
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}
