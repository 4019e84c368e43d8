package processor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"seam/internal/pkg/errors"
	"seam/internal/pkg/logger"
	"seam/internal/ports"
)

type Deps struct {
	Pool         *pgxpool.Pool
	Downloader   Downloader
	Runner       MediaRunner
	StorageRoot  string
	CleanupLocal bool
	SP           ports.StorageProvider
	Log          *logger.Logger
}

type Processor struct {
	pool        *pgxpool.Pool
	storageRoot string
	sp          ports.StorageProvider
	log         *logger.Logger

	jobParser      *JobParser
	segmentHandler *SegmentHandler
	stitchHandler  *StitchHandler
	outputHandler  *OutputHandler
	cleanup        *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	p := &Processor{
		pool:        d.Pool,
		storageRoot: d.StorageRoot,
		sp:          d.SP,
		log:         log,
	}

	p.jobParser = NewJobParser(d.Pool)
	p.segmentHandler = NewSegmentHandler(d.Downloader, d.StorageRoot, log)
	p.stitchHandler = NewStitchHandler(d.Runner, d.StorageRoot, log)
	p.outputHandler = NewOutputHandler(d.Pool, d.SP, d.StorageRoot, d.CleanupLocal)
	p.cleanup = NewCleanup(d.StorageRoot, d.CleanupLocal, d.SP)

	return p
}

// ProcessJob runs the full stitch pipeline for one queued job.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	log.Debug("fetching job params")
	paramsJSON, err := p.fetchJobParams(ctx, jobID)
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.fetch", "failed to fetch job params"))
	}

	log.Debug("parsing job params")
	parsedJob, err := p.jobParser.Parse(ctx, paramsJSON)
	if err != nil {
		return p.failJob(ctx, jobID, errors.WrapWithCode(err, errors.CodeValidation, "processor.parse", "failed to parse job params"))
	}

	log.Debug("marking job as running")
	if err := p.markJobRunning(ctx, jobID); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.status", "failed to mark job as running"))
	}

	outputKeys := GenerateOutputKeys(jobID, parsedJob.OutputFormat, parsedJob.ThumbnailEnabled())
	log.Debug("output keys generated",
		"video", outputKeys.Video,
		"thumb", outputKeys.Thumb,
	)

	log.Info("downloading segments", "count", len(parsedJob.Segments))
	segmentPaths, err := p.segmentHandler.Materialize(ctx, jobID, parsedJob.Segments)
	if err != nil {
		return p.failJob(ctx, jobID, errors.WrapWithCode(err, errors.CodeUpstream, "processor.segments", "failed to download segments"))
	}
	log.Debug("segments materialized", "count", len(segmentPaths))

	log.Info("stitching segments", "format", parsedJob.OutputFormat)
	stitchResult, err := p.stitchHandler.Stitch(ctx, StitchRequest{
		JobID:        jobID,
		SegmentPaths: segmentPaths,
		OutputKeys:   outputKeys,
		OutputFormat: parsedJob.OutputFormat,
		Params:       parsedJob.MergedParams,
	})
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.stitch", "stitch failed"))
	}
	log.Debug("stitch completed",
		"duration_seconds", stitchResult.DurationSeconds,
		"reencoded", stitchResult.Reencoded,
	)

	log.Debug("registering outputs")
	outputResult, err := p.outputHandler.RegisterOutputs(ctx, RegisterOutputsRequest{
		JobID:      jobID,
		OutputKeys: outputKeys,
		Format:     parsedJob.OutputFormat,
		Stitch:     stitchResult,
	})
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.outputs", "failed to register outputs"))
	}
	log.Debug("outputs registered",
		"video_asset", outputResult.VideoAssetID,
		"thumb_asset", outputResult.ThumbAssetID,
	)

	log.Debug("saving job output")
	if err := p.saveJobOutput(ctx, jobID, parsedJob, outputResult); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.save", "failed to save job output"))
	}

	p.cleanup.CleanupJob(jobID)
	log.Debug("cleanup completed")

	return p.markJobDone(ctx, jobID)
}

func (p *Processor) fetchJobParams(ctx context.Context, jobID string) (string, error) {
	var paramsJSON string
	err := p.pool.QueryRow(ctx,
		`SELECT params_json FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&paramsJSON)
	if err != nil {
		return "", fmt.Errorf("job not found: %w", err)
	}
	return paramsJSON, nil
}

func (p *Processor) markJobRunning(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status='RUNNING', started_at=NOW(), finished_at=NULL, error_text=NULL WHERE id=$1`,
		jobID,
	)
	return err
}

func (p *Processor) markJobDone(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status='DONE', finished_at=NOW() WHERE id=$1`,
		jobID,
	)
	return err
}

func (p *Processor) saveJobOutput(ctx context.Context, jobID string, job *ParsedJob, result *OutputResult) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO job_outputs (id, job_id, variant, video_asset_id, thumbnail_asset_id, format, duration_seconds, size_bytes, segments_count, inline)
         VALUES ($1,$2,1,$3,$4,$5,$6,$7,$8,$9)`,
		result.OutputID,
		jobID,
		result.VideoAssetID,
		NullIfEmpty(result.ThumbAssetID),
		result.Format,
		result.DurationSeconds,
		result.SizeBytes,
		result.SegmentsCount,
		job.InlineEnabled(),
	)
	return err
}

func (p *Processor) failJob(ctx context.Context, jobID string, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	msg := ""
	if cause != nil {
		msg = cause.Error()
		if len(msg) > 2000 {
			msg = msg[:2000]
		}

		var seamErr *errors.Error
		if errors.As(cause, &seamErr) {
			log.Error("job failed",
				"code", string(seamErr.Code),
				"op", seamErr.Op,
				"message", seamErr.Message,
			)
		} else {
			log.Error("job failed", "error", msg)
		}
	}

	p.cleanup.CleanupJob(jobID)

	_, _ = p.pool.Exec(ctx,
		`UPDATE jobs SET status='FAILED', finished_at=NOW(), error_text=$2 WHERE id=$1`,
		jobID, msg,
	)

	return cause
}
