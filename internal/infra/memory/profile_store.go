package memory

import (
	"context"
	"sync"

	"adaptive-quiz-service/internal/domain"
)

// ProfileStore keeps the learner profile in memory. It is the fallback when
// neither redis nor postgres is configured; the profile then lives only as
// long as the process.
type ProfileStore struct {
	mu      sync.RWMutex
	profile domain.UserProfile
	present bool
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{}
}

func (s *ProfileStore) Load(_ context.Context) (domain.UserProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.present, nil
}

func (s *ProfileStore) Save(_ context.Context, profile domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = profile
	s.present = true
	return nil
}
