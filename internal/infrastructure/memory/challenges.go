// Package memory holds process-local store implementations. They are only
// correct when a single API instance serves all traffic.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/univio-api/internal/domain"
)

// ChallengeStore is a mutex-guarded map of challenge state.
type ChallengeStore struct {
	mu    sync.Mutex
	items map[string]domain.ChallengeState
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{items: make(map[string]domain.ChallengeState)}
}

func (s *ChallengeStore) Get(_ context.Context, key string) (*domain.ChallengeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	c := clone(st)
	return &c, nil
}

// Mutate holds the lock across fn, so calls on any key are serialized.
func (s *ChallengeStore) Mutate(_ context.Context, key string, fn func(*domain.ChallengeState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := clone(s.items[key])
	if err := fn(&st); err != nil {
		return err
	}
	if st.Empty() {
		delete(s.items, key)
		return nil
	}
	s.items[key] = st
	return nil
}

func (s *ChallengeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Scan visits a snapshot of the keys in sorted order.
func (s *ChallengeStore) Scan(ctx context.Context, fn func(key string) error) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of stored keys.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func clone(st domain.ChallengeState) domain.ChallengeState {
	if st.Current != nil {
		c := *st.Current
		st.Current = &c
	}
	if st.Issuances != nil {
		st.Issuances = append([]time.Time(nil), st.Issuances...)
	}
	return st
}
