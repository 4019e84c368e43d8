package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"seam/internal/httpapi/util"
	"seam/internal/httpkit"
)

// InlineMaxBytes caps the output size eligible for base64 inlining.
const InlineMaxBytes = 64 << 20

type CreateJobRequest struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

func (h *Handler) PostJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateJobRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	if msg, field := validateJobParams(req.Params); msg != "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", msg, map[string]any{"field": field})
		return
	}

	if profileID, ok := req.Params["profile_id"].(string); ok && strings.TrimSpace(profileID) != "" {
		if p, err := h.profiles.Get(ctx, strings.TrimSpace(profileID)); err != nil || p.DeletedAt != nil {
			httpkit.WriteErr(w, 400, "PROFILE_NOT_FOUND", "profile does not exist", map[string]any{"field": "params.profile_id"})
			return
		}
	}

	jobID := util.NewID("job")
	paramsBytes, _ := json.Marshal(req.Params)

	createdAt := time.Now().UTC()
	_, err := h.pool.Exec(ctx,
		`INSERT INTO jobs (id, name, status, params_json, created_at)
		 VALUES ($1,$2,'QUEUED',$3,$4)`,
		jobID, nullIfEmpty(strings.TrimSpace(req.Name)), string(paramsBytes), createdAt,
	)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	if err := h.rdb.LPush(ctx, "seam:jobs", jobID).Err(); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{
		"job": map[string]any{
			"id":         jobID,
			"name":       req.Name,
			"status":     "QUEUED",
			"params":     req.Params,
			"created_at": createdAt,
		},
	})
}

// validateJobParams mirrors the worker-side parse so obviously broken
// jobs never reach the queue. Returns message and offending field, or
// empty strings when valid.
func validateJobParams(params map[string]any) (msg, field string) {
	raw, ok := params["segments"].([]any)
	if !ok {
		return "params.segments must be a list of URLs", "params.segments"
	}

	count := 0
	for i, v := range raw {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fmt.Sprintf("params.segments[%d] must be a non-empty string", i), "params.segments"
		}
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			return fmt.Sprintf("params.segments[%d] is not an http(s) URL", i), "params.segments"
		}
		count++
	}
	if count < 2 {
		return "at least 2 segment URLs are required", "params.segments"
	}

	if v, ok := params["output_format"]; ok {
		s, ok := v.(string)
		if !ok {
			return "params.output_format must be a string", "params.output_format"
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "mp4", "webm":
		default:
			return "params.output_format must be mp4 or webm", "params.output_format"
		}
	}

	return "", ""
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	limitStr := strings.TrimSpace(r.URL.Query().Get("limit"))
	limit := 50
	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	var (
		rows pgxRows
		err  error
	)

	if status != "" {
		rows, err = h.pool.Query(ctx,
			`SELECT id, COALESCE(name,''), status, created_at
			 FROM jobs WHERE status=$1
			 ORDER BY created_at DESC
			 LIMIT $2`,
			status, limit,
		)
	} else {
		rows, err = h.pool.Query(ctx,
			`SELECT id, COALESCE(name,''), status, created_at
			 FROM jobs
			 ORDER BY created_at DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	defer rows.Close()

	type item struct {
		ID        string    `json:"id"`
		Name      string    `json:"name,omitempty"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}

	out := make([]item, 0, limit)
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.ID, &it.Name, &it.Status, &it.CreatedAt); err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "row scan failed", nil)
			return
		}
		out = append(out, it)
	}

	httpkit.WriteJSON(w, 200, map[string]any{"jobs": out})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	var (
		id, name, status, paramsJSON string
		errorText                    *string
		createdAt                    time.Time
		startedAt, finishedAt        *time.Time
	)

	err := h.pool.QueryRow(ctx,
		`SELECT id, COALESCE(name,''), status, params_json, error_text, created_at, started_at, finished_at
		 FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&id, &name, &status, &paramsJSON, &errorText, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
		return
	}

	var params map[string]any
	_ = json.Unmarshal([]byte(paramsJSON), &params)

	type outItem struct {
		Variant          int     `json:"variant"`
		VideoAssetID     string  `json:"video_asset_id"`
		ThumbnailAssetID string  `json:"thumbnail_asset_id,omitempty"`
		VideoObjectKey   string  `json:"video_object_key,omitempty"`
		ThumbObjectKey   string  `json:"thumb_object_key,omitempty"`
		Format           string  `json:"format"`
		DurationSeconds  float64 `json:"duration_seconds"`
		SizeBytes        int64   `json:"size_bytes"`
		SegmentsCount    int     `json:"segments_count"`
	}

	outs := []outItem{}

	rows, err := h.pool.Query(ctx,
		`SELECT variant, video_asset_id, COALESCE(thumbnail_asset_id,''), format, duration_seconds, size_bytes, segments_count
		 FROM job_outputs WHERE job_id=$1 ORDER BY variant ASC`,
		jobID,
	)
	if err != nil {
		if !httpkit.IsUndefinedTable(err) {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db outputs query failed", nil)
			return
		}
	} else {
		defer rows.Close()
		for rows.Next() {
			var it outItem
			var thumbID string
			if err := rows.Scan(&it.Variant, &it.VideoAssetID, &thumbID, &it.Format, &it.DurationSeconds, &it.SizeBytes, &it.SegmentsCount); err != nil {
				httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "outputs scan failed", nil)
				return
			}
			if thumbID != "" {
				it.ThumbnailAssetID = thumbID
			}

			it.VideoObjectKey = lookupObjectKey(ctx, h.pool, it.VideoAssetID)
			if it.ThumbnailAssetID != "" {
				it.ThumbObjectKey = lookupObjectKey(ctx, h.pool, it.ThumbnailAssetID)
			}

			outs = append(outs, it)
		}
	}

	job := map[string]any{
		"id":          id,
		"name":        name,
		"status":      status,
		"params":      params,
		"created_at":  createdAt,
		"started_at":  startedAt,
		"finished_at": finishedAt,
		"outputs":     outs,
	}
	if errorText != nil && *errorText != "" {
		job["error"] = *errorText
	}

	httpkit.WriteJSON(w, 200, map[string]any{"job": job})
}

// GetJobResult returns the stitch result for a DONE job, optionally
// with the video inlined as a base64 data URI when the job asked for
// it and the file is small enough.
func (h *Handler) GetJobResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	var status string
	var errorText *string
	err := h.pool.QueryRow(ctx,
		`SELECT status, error_text FROM jobs WHERE id=$1`, jobID,
	).Scan(&status, &errorText)
	if err != nil {
		httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
		return
	}

	if status == "FAILED" {
		msg := "job failed"
		if errorText != nil && *errorText != "" {
			msg = *errorText
		}
		httpkit.WriteJSON(w, 200, map[string]any{"error": msg})
		return
	}
	if status != "DONE" {
		httpkit.WriteErr(w, 409, "JOB_NOT_DONE", "job has not finished", map[string]any{"job_id": jobID, "status": status})
		return
	}

	var (
		videoAssetID, format string
		durationSeconds      float64
		sizeBytes            int64
		segmentsCount        int
		inline               bool
	)
	err = h.pool.QueryRow(ctx,
		`SELECT video_asset_id, format, duration_seconds, size_bytes, segments_count, inline
		 FROM job_outputs WHERE job_id=$1 ORDER BY variant DESC LIMIT 1`,
		jobID,
	).Scan(&videoAssetID, &format, &durationSeconds, &sizeBytes, &segmentsCount, &inline)
	if err != nil {
		httpkit.WriteErr(w, 404, "OUTPUT_NOT_FOUND", "job has no output", map[string]any{"job_id": jobID})
		return
	}

	result := map[string]any{
		"duration":        durationSeconds,
		"file_size_bytes": sizeBytes,
		"segments_count":  segmentsCount,
		"format":          format,
		"video_asset_id":  videoAssetID,
	}

	if inline && sizeBytes > 0 && sizeBytes <= InlineMaxBytes {
		dataURI, err := h.inlineVideo(ctx, videoAssetID)
		if err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "failed to read output", nil)
			return
		}
		result["video_base64"] = dataURI
	}

	httpkit.WriteJSON(w, 200, result)
}

func (h *Handler) inlineVideo(ctx context.Context, assetID string) (string, error) {
	var objectKey, mimeType string
	if err := h.pool.QueryRow(ctx,
		`SELECT object_key, mime FROM assets WHERE id=$1`, assetID,
	).Scan(&objectKey, &mimeType); err != nil {
		return "", err
	}

	rc, _, _, err := h.sp.GetObject(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

func lookupObjectKey(ctx context.Context, db DB, assetID string) string {
	if assetID == "" {
		return ""
	}
	var objectKey string
	_ = db.QueryRow(ctx, `SELECT object_key FROM assets WHERE id=$1`, assetID).Scan(&objectKey)
	return objectKey
}

type pgxRows interface {
	Close()
	Next() bool
	Scan(dest ...any) error
}
