package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

// ChallengeMemoryStore is the process-local backend. Entries do not survive a
// restart and are not shared between instances.
type ChallengeMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*challenge.Challenge
}

func NewChallengeMemoryStore() ports.ChallengeStore {
	return &ChallengeMemoryStore{entries: make(map[string]*challenge.Challenge)}
}

func (s *ChallengeMemoryStore) Put(ctx context.Context, c *challenge.Challenge) error {
	cp := c.Clone()
	s.mu.Lock()
	s.entries[c.Email] = cp
	s.mu.Unlock()
	return nil
}

func (s *ChallengeMemoryStore) Restore(ctx context.Context, c *challenge.Challenge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[c.Email]; ok {
		return false, nil
	}
	s.entries[c.Email] = c.Clone()
	return true, nil
}

func (s *ChallengeMemoryStore) Get(ctx context.Context, email string) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entries[email]
	if !ok {
		return nil, challenge.ErrNoPendingChallenge
	}
	return c.Clone(), nil
}

func (s *ChallengeMemoryStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	delete(s.entries, email)
	s.mu.Unlock()
	return nil
}

func (s *ChallengeMemoryStore) Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[email]
	if !ok {
		return nil, challenge.ErrNoPendingChallenge
	}

	verdict := c.Evaluate(code, now, maxAttempts)
	switch verdict {
	case challenge.VerdictMatch:
		delete(s.entries, email)
		return c, nil
	case challenge.VerdictMismatch:
		return nil, verdict.Err()
	default:
		delete(s.entries, email)
		return nil, verdict.Err()
	}
}

func (s *ChallengeMemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for email, c := range s.entries {
		if c.IsExpired(now) {
			delete(s.entries, email)
			n++
		}
	}
	return n, nil
}

// Len is the number of stored entries, expired ones included.
func (s *ChallengeMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
