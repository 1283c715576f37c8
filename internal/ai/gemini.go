package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"adaptive-quiz-service/internal/domain"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Gemini implements the assistant collaborator against the Gemini API. The
// client reads its API key from the environment (GEMINI_API_KEY).
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

// GenerateQuiz asks for a full quiz over the source text, deduplicated against
// prior quizzes. A malformed or empty response is a generation error.
func (g *Gemini) GenerateQuiz(ctx context.Context, sourceText string, difficulty domain.Difficulty, prior []domain.Quiz, questionCount int) (domain.Quiz, error) {
	raw, err := g.generate(ctx, quizSystemPrompt, buildQuizPrompt(sourceText, difficulty, prior, questionCount))
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(stripFences(raw)), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz response: %w", err)
	}
	if quiz.Len() == 0 {
		return domain.Quiz{}, domain.ErrEmptyQuiz
	}
	return quiz, nil
}

// GenerateExplanation asks for a short explanation of one answered question.
func (g *Gemini) GenerateExplanation(ctx context.Context, sourceText string, question domain.TaggedQuestion, answer domain.Answer) (string, error) {
	text, err := g.generate(ctx, explanationSystemPrompt, buildExplanationPrompt(sourceText, question, answer))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// AnalyzePerformance asks for a strengths/weaknesses/recommendations verdict
// over the full history.
func (g *Gemini) AnalyzePerformance(ctx context.Context, history []domain.HistoryItem) (*domain.PerformanceAnalysis, error) {
	raw, err := g.generate(ctx, analysisSystemPrompt, buildAnalysisPrompt(history))
	if err != nil {
		return nil, err
	}
	var analysis domain.PerformanceAnalysis
	if err := json.Unmarshal([]byte(stripFences(raw)), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	return &analysis, nil
}

func (g *Gemini) generate(ctx context.Context, system, user string) (string, error) {
	prompt := system + "\n\n" + user
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	raw := result.Text()
	if raw == "" {
		return "", errors.New("empty model response")
	}
	return raw, nil
}

// stripFences removes markdown code fences the model sometimes wraps JSON in.
func stripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimSuffix(clean, "```")
	return strings.Trim(clean, "`")
}
