package pagerender

import (
	"context"
	"sync"
)

// The raster backend is process-wide state. Initialization is idempotent and
// shared: the first caller starts it, everyone else waits on the same outcome.
var backend struct {
	once sync.Once
	done chan struct{}
	err  error
}

// EnsureBackend makes sure the raster backend is ready. Concurrent callers
// block on a single in-flight initialization rather than re-triggering it.
// Cancelling the context abandons the wait, not the initialization itself.
func EnsureBackend(ctx context.Context) error {
	backend.once.Do(func() {
		backend.done = make(chan struct{})
		go func() {
			backend.err = initBackend()
			close(backend.done)
		}()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-backend.done:
		return backend.err
	}
}

// initBackend performs the one-time warm-up of the rasterization collaborator.
// The default backend has nothing to load; cgo-backed rasterizers hook their
// library initialization in here.
func initBackend() error {
	return nil
}
