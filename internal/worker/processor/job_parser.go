package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ParsedJob struct {
	Segments     []string
	OutputFormat string
	ProfileID    string
	Params       map[string]any
	MergedParams map[string]any
	HasProfile   bool
}

// ThumbnailEnabled defaults to true; an explicit falsy value disables
// thumbnail extraction.
func (j *ParsedJob) ThumbnailEnabled() bool {
	v, ok := j.MergedParams["thumbnail"]
	if !ok {
		return true
	}
	return IsTruthy(v)
}

// InlineEnabled reports whether the result endpoint should return the
// stitched video as a base64 data URI.
func (j *ParsedJob) InlineEnabled() bool {
	return IsTruthy(j.MergedParams["inline"])
}

type JobParser struct {
	pool *pgxpool.Pool
}

func NewJobParser(pool *pgxpool.Pool) *JobParser {
	return &JobParser{pool: pool}
}

func (jp *JobParser) Parse(ctx context.Context, paramsJSON string) (*ParsedJob, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(paramsJSON), &raw); err != nil {
		return nil, fmt.Errorf("invalid params_json: %w", err)
	}

	j := &ParsedJob{
		Params:       raw,
		MergedParams: raw,
	}

	if profileID, ok := raw["profile_id"].(string); ok && strings.TrimSpace(profileID) != "" {
		j.HasProfile = true
		j.ProfileID = strings.TrimSpace(profileID)

		defaults, err := jp.fetchProfileDefaults(ctx, j.ProfileID)
		if err != nil {
			return nil, err
		}

		// Merge: profile defaults -> job params (job wins)
		j.MergedParams = mergeMaps(defaults, raw)
	}

	segments, err := extractSegments(j.MergedParams)
	if err != nil {
		return nil, err
	}
	j.Segments = segments

	format, err := extractOutputFormat(j.MergedParams)
	if err != nil {
		return nil, err
	}
	j.OutputFormat = format

	return j, nil
}

func (jp *JobParser) fetchProfileDefaults(ctx context.Context, profileID string) (map[string]any, error) {
	var defaultsBytes []byte
	err := jp.pool.QueryRow(ctx,
		`SELECT COALESCE(defaults, '{}'::jsonb) FROM profiles WHERE id=$1 AND deleted_at IS NULL`,
		profileID,
	).Scan(&defaultsBytes)
	if err != nil {
		return nil, fmt.Errorf("profile not found: %s", profileID)
	}

	defaults := make(map[string]any)
	if err := json.Unmarshal(defaultsBytes, &defaults); err != nil {
		return nil, fmt.Errorf("invalid profile defaults: %w", err)
	}

	return defaults, nil
}

// extractSegments pulls and validates params.segments. At least two
// URLs are required; stitching a single segment is rejected the same
// way an empty list is.
func extractSegments(params map[string]any) ([]string, error) {
	raw, ok := params["segments"].([]any)
	if !ok {
		return nil, fmt.Errorf("params.segments must be a list of URLs")
	}

	segments := make([]string, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("params.segments[%d] must be a string", i)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("params.segments[%d] is empty", i)
		}
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			return nil, fmt.Errorf("params.segments[%d] is not an http(s) URL", i)
		}
		segments = append(segments, s)
	}

	if len(segments) < 2 {
		return nil, fmt.Errorf("at least 2 segment URLs are required")
	}

	return segments, nil
}

func extractOutputFormat(params map[string]any) (string, error) {
	v, ok := params["output_format"]
	if !ok {
		return "mp4", nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("params.output_format must be a string")
	}

	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "mp4":
		return "mp4", nil
	case "webm":
		return "webm", nil
	default:
		return "", fmt.Errorf("unsupported output_format: %s", s)
	}
}

func mergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}
	return result
}
