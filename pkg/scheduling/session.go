package scheduling

import (
	"context"
	"sync"
)

// Session guards one editing session's reactive re-validation. Every call to
// Validate cancels the previous run and bumps a generation counter, results
// that resolve after a newer call started are discarded instead of delivered.
type Session struct {
	Validator *Validator

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewSession constructs a Session
func NewSession(validator *Validator) *Session {
	return &Session{
		Validator: validator,
	}
}

// Validate starts a validation run. The returned channel delivers at most one
// Result and is closed without a value when the run went stale or was cancelled.
func (s *Session) Validate(ctx context.Context, rows []CandidateRow, excludeOrderID string) <-chan Result {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.generation++
	generation := s.generation
	s.mu.Unlock()

	results := make(chan Result, 1)

	go func() {
		defer close(results)

		result := s.Validator.ValidateRows(runCtx, rows, excludeOrderID)

		s.mu.Lock()
		stale := s.generation != generation
		s.mu.Unlock()

		if stale || runCtx.Err() != nil {
			return
		}

		results <- result
	}()

	return results
}

// Close cancels an in flight validation run
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
