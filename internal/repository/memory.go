package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"rustplugin-bot/internal/domain"
)

// MemoryStore keeps pending results in a bounded, expiring in-process cache.
// It suits a single long-polling process; results do not survive restarts.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, domain.PendingResult]
	now   func() time.Time
}

// NewMemoryStore creates a store holding at most size results for ttl each.
func NewMemoryStore(size int, ttl time.Duration) (*MemoryStore, error) {
	if size <= 0 {
		return nil, errors.New("repository: cache size must be positive")
	}
	if ttl <= 0 {
		return nil, errors.New("repository: ttl must be positive")
	}
	return &MemoryStore{
		cache: expirable.NewLRU[string, domain.PendingResult](size, nil, ttl),
		now:   time.Now,
	}, nil
}

func (s *MemoryStore) Save(_ context.Context, p domain.PendingResult) error {
	if strings.TrimSpace(p.Token) == "" {
		return errors.New("repository: Save: token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Contains(p.Token) {
		return errors.New("repository: Save: token already exists")
	}
	s.cache.Add(p.Token, p)
	return nil
}

func (s *MemoryStore) Take(_ context.Context, token string) (domain.PendingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.cache.Get(token)
	if !ok {
		return domain.PendingResult{}, domain.ErrPendingNotFound
	}
	s.cache.Remove(token)
	if p.Expired(s.now()) {
		return domain.PendingResult{}, domain.ErrPendingNotFound
	}
	return p, nil
}
