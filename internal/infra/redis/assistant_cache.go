package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedAssistant stores generated quizzes in Redis so identical creation
// requests across process restarts (or replicas sharing the instance) reuse
// one model call. Keys are: quiz:generated:{fingerprint} -> quiz JSON.
type CachedAssistant struct {
	client *redis.Client
	inner  app.Assistant
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCachedAssistant(client *redis.Client, inner app.Assistant, ttl time.Duration) *CachedAssistant {
	return &CachedAssistant{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedAssistant) GenerateQuiz(ctx context.Context, sourceText string, difficulty domain.Difficulty, prior []domain.Quiz, questionCount int) (domain.Quiz, error) {
	key := c.key(memory.GenerationKey(sourceText, difficulty, questionCount, len(prior)))

	if quiz, ok := c.cached(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, key); ok {
			return quiz, nil
		}

		quiz, err := c.inner.GenerateQuiz(ctx, sourceText, difficulty, prior, questionCount)
		if err != nil {
			return domain.Quiz{}, err
		}

		if raw, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *CachedAssistant) GenerateExplanation(ctx context.Context, sourceText string, question domain.TaggedQuestion, answer domain.Answer) (string, error) {
	return c.inner.GenerateExplanation(ctx, sourceText, question, answer)
}

func (c *CachedAssistant) AnalyzePerformance(ctx context.Context, history []domain.HistoryItem) (*domain.PerformanceAnalysis, error) {
	return c.inner.AnalyzePerformance(ctx, history)
}

func (c *CachedAssistant) cached(ctx context.Context, key string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *CachedAssistant) key(fingerprint string) string {
	return "quiz:generated:" + fingerprint
}

func (c *CachedAssistant) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
