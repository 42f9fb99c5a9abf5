package store

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/soaringjerry/tsa-checkout/internal/models"
	"github.com/soaringjerry/tsa-checkout/internal/services"
)

// MemoryStore keeps submissions in process memory and lets them expire after
// ttl. Contents are lost on restart.
type MemoryStore struct {
	cache *cache.Cache
	// takeMu serializes Take so a submission is handed out once.
	takeMu sync.Mutex
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &MemoryStore{cache: cache.New(ttl, cleanup)}
}

func (s *MemoryStore) Put(_ context.Context, sub *models.Submission) error {
	cp := *sub
	cp.Answers = append(models.ResponseSet(nil), sub.Answers...)
	s.cache.SetDefault(sub.ID, &cp)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Submission, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, services.ErrNotFound
	}
	sub := *v.(*models.Submission)
	sub.Answers = append(models.ResponseSet(nil), sub.Answers...)
	return &sub, nil
}

func (s *MemoryStore) Take(ctx context.Context, id string) (*models.Submission, error) {
	s.takeMu.Lock()
	defer s.takeMu.Unlock()
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(id)
	return sub, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for id, item := range s.cache.Items() {
		if sub, ok := item.Object.(*models.Submission); ok && sub.CreatedAt.Before(cutoff) {
			s.cache.Delete(id)
			removed++
		}
	}
	return removed, nil
}

var _ services.AnswerStore = (*MemoryStore)(nil)
