package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

type countingAssistant struct {
	mu        sync.Mutex
	quizCalls int
}

func (c *countingAssistant) GenerateQuiz(ctx context.Context, sourceText string, difficulty domain.Difficulty, prior []domain.Quiz, questionCount int) (domain.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizCalls++
	return sampleQuiz(), nil
}

func (c *countingAssistant) GenerateExplanation(ctx context.Context, sourceText string, question domain.TaggedQuestion, answer domain.Answer) (string, error) {
	return "because", nil
}

func (c *countingAssistant) AnalyzePerformance(ctx context.Context, history []domain.HistoryItem) (*domain.PerformanceAnalysis, error) {
	return nil, nil
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		MultipleChoice: []domain.MultipleChoiceQuestion{
			{Question: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: "4"},
		},
	}
}

func TestCachedAssistantReusesGeneration(t *testing.T) {
	ctx := context.Background()
	inner := &countingAssistant{}
	cached := NewCachedAssistant(inner, time.Minute)

	if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyMedium, nil, 5); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyMedium, nil, 5); err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if inner.quizCalls != 1 {
		t.Fatalf("expected one model call, got %d", inner.quizCalls)
	}

	// A different difficulty is a different fingerprint.
	if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyHard, nil, 5); err != nil {
		t.Fatalf("generate 3: %v", err)
	}
	if inner.quizCalls != 2 {
		t.Fatalf("expected a second model call, got %d", inner.quizCalls)
	}
}

func TestCachedAssistantHistoryLengthInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := &countingAssistant{}
	cached := NewCachedAssistant(inner, time.Minute)

	prior := []domain.Quiz{sampleQuiz()}
	if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyMedium, nil, 5); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyMedium, prior, 5); err != nil {
		t.Fatalf("generate with history: %v", err)
	}
	if inner.quizCalls != 2 {
		t.Fatalf("a grown history must bypass the cache, got %d calls", inner.quizCalls)
	}
}

func TestCachedAssistantExpires(t *testing.T) {
	ctx := context.Background()
	inner := &countingAssistant{}
	cached := NewCachedAssistant(inner, time.Minute)

	now := time.Now()
	cached.clock = func() time.Time { return now }
	if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyMedium, nil, 5); err != nil {
		t.Fatalf("generate: %v", err)
	}

	cached.clock = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyMedium, nil, 5); err != nil {
		t.Fatalf("generate after expiry: %v", err)
	}
	if inner.quizCalls != 2 {
		t.Fatalf("expected a regeneration after expiry, got %d calls", inner.quizCalls)
	}
}

func TestCachedAssistantCollapsesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	inner := &countingAssistant{}
	cached := NewCachedAssistant(inner, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cached.GenerateQuiz(ctx, "source", domain.DifficultyMedium, nil, 5); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.quizCalls != 1 {
		t.Fatalf("expected singleflight to collapse to one call, got %d", inner.quizCalls)
	}
}

func TestGenerationKeyStableAndDistinct(t *testing.T) {
	a := GenerationKey("source", domain.DifficultyMedium, 5, 0)
	b := GenerationKey("source", domain.DifficultyMedium, 5, 0)
	if a != b {
		t.Fatal("identical requests must share a key")
	}
	if GenerationKey("other", domain.DifficultyMedium, 5, 0) == a {
		t.Fatal("different sources must differ")
	}
	if GenerationKey("source", domain.DifficultyMedium, 10, 0) == a {
		t.Fatal("different counts must differ")
	}
}
