package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// CachedAssistant caches generated quizzes with TTL so an identical creation
// request (same source, difficulty, count, and history length) does not pay
// for a second model call; singleflight collapses concurrent duplicates.
// Explanations and analyses are never cached.
type CachedAssistant struct {
	inner app.Assistant
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz

	rndMu sync.Mutex
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCachedAssistant(inner app.Assistant, ttl time.Duration) *CachedAssistant {
	return &CachedAssistant{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuiz),
	}
}

func (c *CachedAssistant) GenerateQuiz(ctx context.Context, sourceText string, difficulty domain.Difficulty, prior []domain.Quiz, questionCount int) (domain.Quiz, error) {
	key := GenerationKey(sourceText, difficulty, questionCount, len(prior))
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.inner.GenerateQuiz(ctx, sourceText, difficulty, prior, questionCount)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.cache[key] = cachedQuiz{quiz: quiz, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
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

// GenerationKey fingerprints a quiz creation request. History length is part
// of the key so a finished session invalidates the cache and the dedup clause
// stays effective.
func GenerationKey(sourceText string, difficulty domain.Difficulty, questionCount, historyLen int) string {
	sum := sha256.Sum256([]byte(sourceText))
	return fmt.Sprintf("%s:%s:%d:%d", hex.EncodeToString(sum[:8]), difficulty, questionCount, historyLen)
}

func (c *CachedAssistant) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
