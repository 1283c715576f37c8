package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adaptive-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const profileKey = "quiz:profile:learner"

// ProfileStore persists the learner profile as a JSON blob in Redis. One
// profile per deployment, so the key is fixed.
type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) Load(ctx context.Context) (domain.UserProfile, bool, error) {
	raw, err := s.client.Get(ctx, profileKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserProfile{}, false, nil
	}
	if err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("load profile: %w", err)
	}
	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("unmarshal profile: %w", err)
	}
	return profile, true, nil
}

func (s *ProfileStore) Save(ctx context.Context, profile domain.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := s.client.Set(ctx, profileKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
