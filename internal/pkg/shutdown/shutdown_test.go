package shutdown

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"seam/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})
}

func TestNewManager(t *testing.T) {
	log := newTestLogger()

	t.Run("with default timeout", func(t *testing.T) {
		mgr := NewManager(log, 0)
		if mgr == nil {
			t.Fatal("expected manager to be non-nil")
		}
		if mgr.timeout != 30*time.Second {
			t.Errorf("expected default timeout of 30s, got %s", mgr.timeout)
		}
	})

	t.Run("with custom timeout", func(t *testing.T) {
		mgr := NewManager(log, 10*time.Second)
		if mgr.timeout != 10*time.Second {
			t.Errorf("expected timeout of 10s, got %s", mgr.timeout)
		}
	})
}

func TestRegister(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	mgr.Register("test", func(ctx context.Context) error {
		return nil
	})

	if len(mgr.handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(mgr.handlers))
	}
}

func TestShutdownRunsAllHandlers(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var ran int32
	for i := 0; i < 3; i++ {
		mgr.Register(fmt.Sprintf("handler-%d", i), func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}

	mgr.Shutdown()

	if got := atomic.LoadInt32(&ran); got != 3 {
		t.Errorf("expected 3 handlers to run, got %d", got)
	}
}

func TestShutdownContinuesOnHandlerError(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var ran int32
	mgr.Register("failing", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return fmt.Errorf("cleanup failed")
	})
	mgr.Register("ok", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	mgr.Shutdown()

	if got := atomic.LoadInt32(&ran); got != 2 {
		t.Errorf("expected both handlers to run, got %d", got)
	}
}

func TestShutdownTimeout(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 100*time.Millisecond)

	mgr.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})

	start := time.Now()
	mgr.Shutdown()
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("expected shutdown to respect timeout, took %s", elapsed)
	}
}

func TestRegisterSimple(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, time.Second)

	var ran int32
	mgr.RegisterSimple("simple", func() {
		atomic.AddInt32(&ran, 1)
	})

	mgr.Shutdown()

	if atomic.LoadInt32(&ran) != 1 {
		t.Error("expected simple handler to run")
	}
}

func TestDone(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, time.Second)

	select {
	case <-mgr.Done():
		t.Fatal("done channel should not be closed before shutdown")
	default:
	}

	mgr.Shutdown()

	select {
	case <-mgr.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel should be closed after shutdown")
	}
}
