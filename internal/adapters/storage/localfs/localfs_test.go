package localfs

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"seam/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	root := t.TempDir()
	fs := New(root)
	ctx := context.Background()

	out, err := fs.PutObject(ctx, putInput("renders/job_1/stitched.mp4", "video/mp4", "fake video bytes"))
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if out.ObjectKey != "renders/job_1/stitched.mp4" {
		t.Errorf("expected object key to be echoed, got %q", out.ObjectKey)
	}
	if out.Size != int64(len("fake video bytes")) {
		t.Errorf("expected size %d, got %d", len("fake video bytes"), out.Size)
	}

	rc, ct, size, err := fs.GetObject(ctx, "renders/job_1/stitched.mp4")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	defer rc.Close()

	body, _ := io.ReadAll(rc)
	if string(body) != "fake video bytes" {
		t.Errorf("unexpected body: %q", body)
	}
	if size != out.Size {
		t.Errorf("expected size %d, got %d", out.Size, size)
	}
	if !strings.HasPrefix(ct, "video/mp4") {
		t.Errorf("expected video/mp4 content type, got %q", ct)
	}

	if err := fs.DeleteObject(ctx, "renders/job_1/stitched.mp4"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if _, _, _, err := fs.GetObject(ctx, "renders/job_1/stitched.mp4"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist after delete, got %v", err)
	}
}

func TestPutObjectRequiresKey(t *testing.T) {
	fs := New(t.TempDir())

	_, err := fs.PutObject(context.Background(), putInput("", "video/mp4", "x"))
	if err == nil {
		t.Fatal("expected error for empty object key")
	}
}

func TestPutObjectCreatesNestedDirs(t *testing.T) {
	root := t.TempDir()
	fs := New(root)

	_, err := fs.PutObject(context.Background(), putInput("a/b/c/d.jpg", "image/jpeg", "thumb"))
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}

	if _, err := os.Stat(root + "/a/b/c/d.jpg"); err != nil {
		t.Errorf("expected nested file to exist: %v", err)
	}
}

func TestPutObjectSameFileIsNoop(t *testing.T) {
	root := t.TempDir()
	fs := New(root)

	// Render already written in place under the root, the way the
	// worker does it.
	path := root + "/renders/job_1/stitched.mp4"
	if err := os.MkdirAll(root+"/renders/job_1", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("rendered bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	out, err := fs.PutObject(context.Background(), ports.PutObjectInput{
		ObjectKey:   "renders/job_1/stitched.mp4",
		ContentType: "video/mp4",
		Reader:      f,
		Size:        int64(len("rendered bytes")),
	})
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if out.Size != int64(len("rendered bytes")) {
		t.Errorf("expected size preserved, got %d", out.Size)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "rendered bytes" {
		t.Errorf("file was truncated or rewritten: %q", body)
	}
}

func putInput(key, ct, body string) ports.PutObjectInput {
	return ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: ct,
		Reader:      strings.NewReader(body),
		Size:        int64(len(body)),
	}
}
