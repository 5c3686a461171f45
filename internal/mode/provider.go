// Package mode reports which mode the application runs in.
package mode

import (
	"context"
	"sync"

	"github.com/memoraapp/memora/internal/domain"
)

// Provider reports the current application mode.
type Provider interface {
	Current(ctx context.Context) (domain.Mode, error)
}

// Static is a Provider holding a fixed, settable mode.
type Static struct {
	mu   sync.RWMutex
	mode domain.Mode
	err  error
}

// NewStatic returns a provider that always reports m.
func NewStatic(m domain.Mode) *Static {
	return &Static{mode: m}
}

// Current returns the held mode, or the configured error.
func (s *Static) Current(context.Context) (domain.Mode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode, s.err
}

// Set replaces the held mode.
func (s *Static) Set(m domain.Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Fail makes Current return err until cleared with Fail(nil).
func (s *Static) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
