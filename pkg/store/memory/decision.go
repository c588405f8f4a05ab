package memory

import (
	"context"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// AppendDecision records a dedup decision.
func (s *Store) AppendDecision(ctx context.Context, decision common.DedupDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions = append(s.decisions, decision)
	return nil
}

// ListDecisions returns all decisions made at or after since.
func (s *Store) ListDecisions(ctx context.Context, since time.Time) ([]common.DedupDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []common.DedupDecision
	for _, decision := range s.decisions {
		if decision.DecidedAt.Before(since) {
			continue
		}
		out = append(out, decision)
	}
	return out, nil
}
