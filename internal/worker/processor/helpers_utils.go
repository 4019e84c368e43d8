package processor

import (
	"fmt"
	"strings"
)

// OutputKeys contains the object keys for the job outputs.
type OutputKeys struct {
	Video string
	Thumb string
}

// GenerateOutputKeys creates the object keys for the job outputs.
func GenerateOutputKeys(jobID, format string, thumbnailEnabled bool) *OutputKeys {
	keys := &OutputKeys{
		Video: fmt.Sprintf("renders/%s/stitched.%s", jobID, format),
	}

	if thumbnailEnabled {
		keys.Thumb = fmt.Sprintf("renders/%s/thumb.jpg", jobID)
	}

	return keys
}

// MimeForFormat maps an output container format to its MIME type.
func MimeForFormat(format string) string {
	if format == "webm" {
		return "video/webm"
	}
	return "video/mp4"
}

// IsTruthy evaluates whether a decoded JSON value should count as true.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s == "1" || s == "true" || s == "yes" || s == "on"
	default:
		return false
	}
}

// NullIfEmpty returns nil for empty strings, for nullable DB columns.
func NullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
