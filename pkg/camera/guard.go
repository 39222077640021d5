package camera

import (
	"fmt"
	"sync"

	"github.com/facegate/facegate/pkg/logging"
)

// Guard enforces exclusive use of a single camera. Enrollment and
// recognition sessions must never hold the device at the same time.
type Guard struct {
	mu      sync.Mutex
	source  Source
	held    bool
	purpose string
}

// NewGuard wraps a source in an exclusion guard.
func NewGuard(source Source) *Guard {
	return &Guard{source: source}
}

// Acquire opens the source for the given purpose. It fails with ErrBusy if
// the camera is already held. The returned release function closes the
// source and frees the guard; it is safe to call more than once.
func (g *Guard) Acquire(purpose string) (Source, func(), error) {
	g.mu.Lock()
	if g.held {
		holder := g.purpose
		g.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: held for %s", ErrBusy, holder)
	}
	g.held = true
	g.purpose = purpose
	g.mu.Unlock()

	if err := g.source.Open(); err != nil {
		_ = g.source.Close()
		g.mu.Lock()
		g.held = false
		g.mu.Unlock()
		return nil, nil, err
	}

	logging.Component("camera").Debugf("acquired for %s", purpose)

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = g.source.Close()
			g.mu.Lock()
			g.held = false
			g.purpose = ""
			g.mu.Unlock()
			logging.Component("camera").Debugf("released by %s", purpose)
		})
	}
	return g.source, release, nil
}
