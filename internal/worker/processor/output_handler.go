package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"seam/internal/ports"
	"seam/internal/worker/util"
)

type OutputHandler struct {
	pool         *pgxpool.Pool
	sp           ports.StorageProvider
	storageRoot  string
	cleanupLocal bool
}

func NewOutputHandler(pool *pgxpool.Pool, sp ports.StorageProvider, storageRoot string, cleanupLocal bool) *OutputHandler {
	return &OutputHandler{
		pool:         pool,
		sp:           sp,
		storageRoot:  storageRoot,
		cleanupLocal: cleanupLocal,
	}
}

type RegisterOutputsRequest struct {
	JobID      string
	OutputKeys *OutputKeys
	Format     string
	Stitch     *StitchResult
}

type OutputResult struct {
	OutputID        string
	VideoAssetID    string
	ThumbAssetID    string
	DurationSeconds float64
	SizeBytes       int64
	SegmentsCount   int
	Format          string
}

// RegisterOutputs uploads and registers the stitched video and, when
// present, the thumbnail.
func (oh *OutputHandler) RegisterOutputs(ctx context.Context, req RegisterOutputsRequest) (*OutputResult, error) {
	result := &OutputResult{
		OutputID:        util.NewID("out"),
		DurationSeconds: req.Stitch.DurationSeconds,
		SizeBytes:       req.Stitch.SizeBytes,
		SegmentsCount:   req.Stitch.SegmentsCount,
		Format:          req.Format,
	}

	videoAssetID, _, err := oh.registerAsset(ctx, "render_output", MimeForFormat(req.Format), req.OutputKeys.Video)
	if err != nil {
		return nil, fmt.Errorf("failed to register video: %w", err)
	}
	result.VideoAssetID = videoAssetID

	if req.OutputKeys.Thumb != "" && oh.outputFileExists(req.OutputKeys.Thumb) {
		thumbAssetID, _, err := oh.registerAsset(ctx, "thumbnail", "image/jpeg", req.OutputKeys.Thumb)
		if err != nil {
			return nil, fmt.Errorf("failed to register thumbnail: %w", err)
		}
		result.ThumbAssetID = thumbAssetID
	}

	return result, nil
}

func (oh *OutputHandler) outputFileExists(objectKey string) bool {
	localPath := filepath.Join(oh.storageRoot, filepath.FromSlash(objectKey))
	_, err := os.Stat(localPath)
	return err == nil
}

func (oh *OutputHandler) registerAsset(ctx context.Context, kind, mime, objectKey string) (assetID string, size int64, err error) {
	localPath := filepath.Join(oh.storageRoot, filepath.FromSlash(objectKey))
	st, err := os.Stat(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("asset file not found: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open asset: %w", err)
	}
	defer f.Close()

	uploadResult, err := oh.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: mime,
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload asset: %w", err)
	}

	assetID = util.NewID("ast")
	_, err = oh.pool.Exec(ctx,
		`INSERT INTO assets (id, kind, provider, object_key, mime, size_bytes)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		assetID, kind, oh.sp.Provider(), uploadResult.ObjectKey, mime, uploadResult.Size,
	)
	if err != nil {
		return "", 0, fmt.Errorf("failed to register asset in DB: %w", err)
	}

	oh.maybeCleanupFile(objectKey)

	return assetID, uploadResult.Size, nil
}

// maybeCleanupFile removes the local render once it lives in a remote
// provider. With localfs the local file IS the stored object.
func (oh *OutputHandler) maybeCleanupFile(objectKey string) {
	if !oh.cleanupLocal || oh.sp.Provider() == "localfs" {
		return
	}
	_ = os.Remove(filepath.Join(oh.storageRoot, filepath.FromSlash(objectKey)))
}
