package processor

import (
	"os"
	"path/filepath"

	"seam/internal/ports"
)

type Cleanup struct {
	storageRoot  string
	cleanupLocal bool
	sp           ports.StorageProvider
}

func NewCleanup(storageRoot string, cleanupLocal bool, sp ports.StorageProvider) *Cleanup {
	return &Cleanup{
		storageRoot:  storageRoot,
		cleanupLocal: cleanupLocal,
		sp:           sp,
	}
}

// CleanupJob removes the job's temporary files. The work dir with the
// downloaded segments and concat list always goes; the renders dir only
// when the outputs live in a remote provider.
func (c *Cleanup) CleanupJob(jobID string) {
	workDir := filepath.Join(c.storageRoot, "jobs", jobID)
	_ = os.RemoveAll(workDir)

	if !c.shouldCleanupRenders() {
		return
	}

	renderDir := filepath.Join(c.storageRoot, "renders", jobID)
	_ = os.RemoveAll(renderDir)
}

func (c *Cleanup) shouldCleanupRenders() bool {
	return c.cleanupLocal && c.sp.Provider() == "gdrive"
}
