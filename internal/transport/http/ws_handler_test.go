package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type stubAssistant struct{}

func (stubAssistant) GenerateQuiz(ctx context.Context, sourceText string, difficulty domain.Difficulty, prior []domain.Quiz, questionCount int) (domain.Quiz, error) {
	return domain.Quiz{
		MultipleChoice: []domain.MultipleChoiceQuestion{
			{Question: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: "4", Topic: "Math"},
		},
		TrueFalse: []domain.TrueFalseQuestion{
			{Question: "2 + 2 equals 4", CorrectAnswer: true, Topic: "Math"},
		},
	}, nil
}

func (stubAssistant) GenerateExplanation(ctx context.Context, sourceText string, question domain.TaggedQuestion, answer domain.Answer) (string, error) {
	return "basic arithmetic", nil
}

func (stubAssistant) AnalyzePerformance(ctx context.Context, history []domain.HistoryItem) (*domain.PerformanceAnalysis, error) {
	return &domain.PerformanceAnalysis{Recommendations: "practice"}, nil
}

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	service := app.NewGameService(memory.NewSessionStore(), memory.NewProfileStore(), stubAssistant{})
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (payload %v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func writeMsg(conn *websocket.Conn, t *testing.T, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocketFullSessionFlow(t *testing.T) {
	conn := dialTestServer(t)

	// The connection greets with the profile.
	readNext(conn, t, "profile")

	writeMsg(conn, t, "create", map[string]any{
		"sourceText": "two plus two equals four",
		"sourceName": "arithmetic.txt",
		"difficulty": "Medium",
	})
	_, question := readNext(conn, t, "question")
	if question["uid"] != "mcq-0" || question["player"] != "Player 1" {
		t.Fatalf("unexpected first question: %v", question)
	}
	if question["options"] == nil {
		t.Fatal("multiple choice must ship its options")
	}
	if _, leaked := question["correctAnswer"]; leaked {
		t.Fatal("the correct answer must not reach the client")
	}

	writeMsg(conn, t, "answer", map[string]any{"text": "4"})
	_, reveal := readNext(conn, t, "reveal")
	if reveal["correct"] != true {
		t.Fatalf("expected a correct reveal, got %v", reveal)
	}
	if reveal["explanation"] != "basic arithmetic" {
		t.Fatalf("expected the explanation, got %v", reveal["explanation"])
	}

	writeMsg(conn, t, "next", nil)
	_, question = readNext(conn, t, "question")
	if question["uid"] != "tf-0" {
		t.Fatalf("expected the true/false question, got %v", question["uid"])
	}

	writeMsg(conn, t, "answer", map[string]any{"flag": true})
	readNext(conn, t, "reveal")

	writeMsg(conn, t, "next", nil)
	_, finished := readNext(conn, t, "finished")
	if finished["mode"] != "single" {
		t.Fatalf("expected a single-mode finish, got %v", finished["mode"])
	}
	record, ok := finished["record"].(map[string]any)
	if !ok || record["pointsEarned"] != float64(30) {
		t.Fatalf("expected 30 points recorded, got %v", finished["record"])
	}

	// A fresh profile snapshot follows the finish.
	_, profile := readNext(conn, t, "profile")
	if profile["points"] != float64(30) {
		t.Fatalf("expected profile points 30, got %v", profile["points"])
	}
}

func TestWebSocketMultiplayerTurnHandoff(t *testing.T) {
	conn := dialTestServer(t)
	readNext(conn, t, "profile")

	writeMsg(conn, t, "create", map[string]any{
		"sourceText": "two plus two equals four",
		"difficulty": "Medium",
		"players":    []string{"Alice", "Bob"},
	})
	readNext(conn, t, "question")

	writeMsg(conn, t, "answer", map[string]any{"text": "4"})
	_, turn := readNext(conn, t, "turnResult")
	if turn["nextPlayer"] != "Bob" {
		t.Fatalf("expected Bob next, got %v", turn["nextPlayer"])
	}
	// The per-turn result hides nothing it should not: no question body at all.
	if _, ok := turn["question"]; ok {
		t.Fatal("turn results must not repeat the question")
	}

	writeMsg(conn, t, "ready", nil)
	_, question := readNext(conn, t, "question")
	if question["player"] != "Bob" {
		t.Fatalf("expected Bob's turn, got %v", question["player"])
	}

	writeMsg(conn, t, "answer", map[string]any{"text": "3"})
	_, reveal := readNext(conn, t, "reveal")
	players, ok := reveal["players"].([]any)
	if !ok || len(players) != 2 {
		t.Fatalf("expected both players in the reveal, got %v", reveal["players"])
	}
}

func TestWebSocketQuitRequiresConfirmation(t *testing.T) {
	conn := dialTestServer(t)
	readNext(conn, t, "profile")

	writeMsg(conn, t, "create", map[string]any{
		"sourceText": "two plus two equals four",
		"difficulty": "Easy",
	})
	readNext(conn, t, "question")

	writeMsg(conn, t, "quit", map[string]any{"confirm": false})
	readNext(conn, t, "error")

	writeMsg(conn, t, "quit", map[string]any{"confirm": true})
	_, profile := readNext(conn, t, "quitAck")
	if history, ok := profile["quizHistory"].([]any); !ok || len(history) != 0 {
		t.Fatalf("an abandoned session must not enter history: %v", profile["quizHistory"])
	}
}

func TestWebSocketRejectsAnswerWithoutSession(t *testing.T) {
	conn := dialTestServer(t)
	readNext(conn, t, "profile")

	writeMsg(conn, t, "answer", map[string]any{"text": "4"})
	readNext(conn, t, "error")
}
