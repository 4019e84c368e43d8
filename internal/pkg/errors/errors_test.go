package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "invalid input")

	if err.Code != CodeValidation {
		t.Errorf("expected code=%s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "invalid input" {
		t.Errorf("expected message='invalid input', got %s", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "simple error",
			err:      New(CodeValidation, "invalid"),
			contains: []string{"VALIDATION_ERROR", "invalid"},
		},
		{
			name: "error with op",
			err: &Error{
				Code:    CodeInternal,
				Message: "db failed",
				Op:      "job.create",
			},
			contains: []string{"job.create", "INTERNAL_ERROR", "db failed"},
		},
		{
			name: "error with underlying",
			err: &Error{
				Code:    CodeUpstream,
				Message: "segment fetch failed",
				Err:     fmt.Errorf("connection refused"),
			},
			contains: []string{"UPSTREAM_ERROR", "segment fetch failed", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected error string to contain %q, got: %s", c, str)
				}
			}
		})
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := Upstream("http://example.com/a.mp4", "status 503")
	wrapped := Wrap(inner, "processor.segments", "download failed")

	if wrapped.Code != CodeUpstream {
		t.Errorf("expected wrapped error to keep code %s, got %s", CodeUpstream, wrapped.Code)
	}
	if !errors.Is(wrapped, inner) {
		t.Error("expected errors.Is to match the wrapped error")
	}
	if wrapped.Fields["url"] != "http://example.com/a.mp4" {
		t.Errorf("expected fields to be carried through wrap, got %v", wrapped.Fields)
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("boom"), "processor.stitch", "stitch failed")

	if wrapped.Code != CodeInternal {
		t.Errorf("expected plain error to default to %s, got %s", CodeInternal, wrapped.Code)
	}
	if wrapped.Op != "processor.stitch" {
		t.Errorf("expected op to be set, got %s", wrapped.Op)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "msg") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
	if WrapWithCode(nil, CodeTimeout, "op", "msg") != nil {
		t.Error("expected WrapWithCode(nil) to return nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, 400},
		{CodeBadRequest, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeUpstream, 502},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
		{CodeInternal, 500},
		{Code("SOMETHING_ELSE"), 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := &Error{Code: tt.code}
			if got := err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(Validation("bad")); got != CodeValidation {
		t.Errorf("expected %s, got %s", CodeValidation, got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeInternal {
		t.Errorf("expected plain error to map to %s, got %s", CodeInternal, got)
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("params.segments", "at least 2 segment URLs are required")

	if !IsValidation(err) {
		t.Error("expected IsValidation to be true")
	}
	if err.Fields["field"] != "params.segments" {
		t.Errorf("expected field to be recorded, got %v", err.Fields)
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("job", "job_123")

	if !IsNotFound(err) {
		t.Error("expected IsNotFound to be true")
	}
	if !strings.Contains(err.Message, "job_123") {
		t.Errorf("expected message to name the id, got %s", err.Message)
	}
}

func TestStackTrace(t *testing.T) {
	err := Internal("something broke")

	trace := err.StackTrace()
	if trace == "" {
		t.Fatal("expected a non-empty stack trace")
	}
	if !strings.Contains(trace, "errors_test.go") {
		t.Errorf("expected stack trace to include this test file, got:\n%s", trace)
	}
}
