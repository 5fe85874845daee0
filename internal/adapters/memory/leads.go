// Package memory provides an in-memory LeadRepository for local runs and
// tests. Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"lanyard/internal/domain"
)

type LeadStore struct {
	mu    sync.Mutex
	leads []domain.Lead // newest first
}

func NewLeadStore() *LeadStore { return &LeadStore{} }

func (s *LeadStore) FindByEmail(ctx context.Context, userID, email string) (domain.Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.CapturedByUserID == userID && l.Email == email {
			return l, true, nil
		}
	}
	return domain.Lead{}, false, nil
}

func (s *LeadStore) Insert(ctx context.Context, lead domain.Lead) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead.ID = uuid.NewString()
	lead.CreatedAt = time.Now()
	s.leads = append([]domain.Lead{lead}, s.leads...)
	return lead.ID, nil
}

func (s *LeadStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0, limit)
	for _, l := range s.leads {
		if l.CapturedByUserID != userID {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
