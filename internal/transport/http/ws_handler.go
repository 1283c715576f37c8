package http

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"sort"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/extract"

	"github.com/gorilla/websocket"
)

// WSHandler exposes the quiz session machine over a websocket. One connection
// owns at most one live session; all of its messages and timer expiries are
// processed sequentially by a single event loop, so no two transitions ever
// interleave.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type createPayload struct {
	SourceText    string   `json:"sourceText"`
	File          string   `json:"file"` // base64; extracted when present
	SourceName    string   `json:"sourceName"`
	Difficulty    string   `json:"difficulty"`
	TimedMode     bool     `json:"timedMode"`
	Players       []string `json:"players"`
	QuestionCount int      `json:"questionCount"`
}

type quitPayload struct {
	Confirm bool `json:"confirm"`
}

// questionView presents the active question without its correct answer.
type questionView struct {
	UID         string      `json:"uid"`
	Kind        domain.Kind `json:"kind"`
	Number      int         `json:"number"`
	Total       int         `json:"total"`
	Player      string      `json:"player"`
	Phase       app.Phase   `json:"phase"`
	Topic       string      `json:"topic"`
	Prompt      string      `json:"prompt"`
	Options     []string    `json:"options,omitempty"`
	PairPrompts []string    `json:"pairPrompts,omitempty"`
	PairChoices []string    `json:"pairChoices,omitempty"`
	TimeLimit   int         `json:"timeLimitSeconds,omitempty"`
}

type playerView struct {
	Name        string       `json:"name"`
	Score       domain.Score `json:"score"`
	Points      int          `json:"points"`
	Streak      int          `json:"streak"`
	LastCorrect *bool        `json:"lastCorrect,omitempty"`
}

type turnResultPayload struct {
	Player     string    `json:"player"`
	Objective  bool      `json:"objective"`
	Correct    bool      `json:"correct"`
	Awarded    int       `json:"awarded"`
	Streak     int       `json:"streak"`
	Phase      app.Phase `json:"phase"`
	NextPlayer string    `json:"nextPlayer"`
}

type revealPayload struct {
	Question    domain.TaggedQuestion `json:"question"`
	Objective   bool                  `json:"objective"`
	Correct     bool                  `json:"correct"`
	Awarded     int                   `json:"awarded"`
	Explanation string                `json:"explanation"`
	Phase       app.Phase             `json:"phase"`
	Players     []playerView          `json:"players"`
}

type finishedPayload struct {
	Mode    domain.GameMode            `json:"mode"`
	Record  domain.HistoryItem         `json:"record"`
	Players []playerView               `json:"players"`
	Ranking []domain.MultiplayerResult `json:"ranking,omitempty"`
}

type exportPayload struct {
	Data string `json:"data"`
}

// event is one unit of work for the connection's loop: an inbound message, a
// timed-mode countdown expiry, or a terminal read error.
type event struct {
	msg      *inboundMessage
	timerGen uint64
	isTimer  bool
	err      error
}

// ServeWS upgrades the request and runs the connection's event loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := make(chan event, 16)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				select {
				case events <- event{err: err}:
				case <-done:
				}
				return
			}
			select {
			case events <- event{msg: &msg}:
			case <-done:
				return
			}
		}
	}()

	c := &wsConn{handler: h, conn: conn, events: events, done: done, req: r}
	c.run()
}

// wsConn is the per-connection state. Only run's goroutine touches it, and
// only run writes to the socket.
type wsConn struct {
	handler   *WSHandler
	conn      *websocket.Conn
	events    chan event
	done      chan struct{}
	req       *http.Request
	sessionID string
}

func (c *wsConn) run() {
	c.send("profile", c.handler.service.Profile())
	for ev := range c.events {
		if ev.err != nil {
			c.abandonSession()
			return
		}
		if ev.isTimer {
			c.handleTimer(ev.timerGen)
			continue
		}
		c.handleMessage(ev.msg)
	}
}

// abandonSession discards a live session when the socket drops mid-quiz.
// Nothing is persisted, matching an unconfirmed quit.
func (c *wsConn) abandonSession() {
	if c.sessionID == "" {
		return
	}
	c.handler.service.Abandon(c.sessionID)
	c.sessionID = ""
}

func (c *wsConn) handleMessage(msg *inboundMessage) {
	switch msg.Type {
	case "create":
		c.handleCreate(msg.Payload)
	case "answer":
		var answer domain.Answer
		if err := json.Unmarshal(msg.Payload, &answer); err != nil {
			c.sendError("invalid answer payload")
			return
		}
		outcome, err := c.handler.service.SubmitAnswer(c.req.Context(), c.sessionID, answer)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendOutcome(outcome)
	case "draft":
		var answer domain.Answer
		if err := json.Unmarshal(msg.Payload, &answer); err != nil {
			c.sendError("invalid draft payload")
			return
		}
		if err := c.handler.service.SetDraft(c.sessionID, answer); err != nil {
			c.sendError(err.Error())
		}
	case "ready":
		player, err := c.handler.service.ReadyForNextTurn(c.sessionID)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendCurrentQuestion(player.Name)
	case "next":
		c.handleNext()
	case "quit":
		var payload quitPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || !payload.Confirm {
			c.sendError("quit requires confirmation")
			return
		}
		if err := c.handler.service.Quit(c.sessionID); err != nil {
			c.sendError(err.Error())
			return
		}
		c.sessionID = ""
		c.send("quitAck", c.handler.service.Profile())
	case "profile":
		c.send("profile", c.handler.service.Profile())
	case "export":
		data, err := c.handler.service.Export()
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.send("export", exportPayload{Data: string(data)})
	default:
		c.sendError("unsupported message type")
	}
}

func (c *wsConn) handleCreate(raw json.RawMessage) {
	if c.sessionID != "" {
		c.sendError("a session is already in progress")
		return
	}
	var payload createPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("invalid create payload")
		return
	}

	sourceText := payload.SourceText
	if payload.File != "" {
		fileBytes, err := base64.StdEncoding.DecodeString(payload.File)
		if err != nil {
			c.sendError("invalid file encoding")
			return
		}
		sourceText, err = extract.Text(fileBytes)
		if err != nil {
			c.sendError("could not read the uploaded file: " + err.Error())
			return
		}
	}
	if sourceText == "" {
		c.sendError("source text is required")
		return
	}

	session, err := c.handler.service.CreateSession(c.req.Context(), app.CreateSessionParams{
		SourceText:    sourceText,
		SourceName:    payload.SourceName,
		Difficulty:    domain.Difficulty(payload.Difficulty),
		TimedMode:     payload.TimedMode,
		PlayerNames:   payload.Players,
		QuestionCount: payload.QuestionCount,
		OnTimeout:     c.enqueueTimeout,
	})
	if err != nil {
		c.sendError("failed to generate questions: " + err.Error())
		return
	}
	c.sessionID = session.ID()
	c.sendCurrentQuestion(session.CurrentPlayer().Name)
}

// enqueueTimeout routes a countdown expiry into the event loop. It runs on the
// timer's goroutine, so it must not touch connection state directly.
func (c *wsConn) enqueueTimeout(sessionID string, gen uint64) {
	select {
	case c.events <- event{isTimer: true, timerGen: gen}:
	case <-c.done:
	}
}

func (c *wsConn) handleTimer(gen uint64) {
	outcome, ok := c.handler.service.AutoSubmit(c.req.Context(), c.sessionID, gen)
	if !ok {
		// Stale timer: the question, phase, or session changed since it was armed.
		return
	}
	c.sendOutcome(outcome)
}

func (c *wsConn) handleNext() {
	out, err := c.handler.service.NextQuestion(c.req.Context(), c.sessionID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if !out.Done {
		session, ok := c.session()
		if !ok {
			return
		}
		c.send("question", c.viewFor(session, out.Question, out.Position, session.CurrentPlayer().Name))
		return
	}
	payload := finishedPayload{
		Mode:    out.Record.GameMode,
		Record:  out.Record,
		Players: playerViews(out.Players),
		Ranking: out.Ranking,
	}
	c.sessionID = ""
	c.send("finished", payload)
	c.send("profile", c.handler.service.Profile())
}

func (c *wsConn) sendOutcome(outcome app.SubmitOutcome) {
	if outcome.Phase == app.PhaseBetweenTurns {
		c.send("turnResult", turnResultPayload{
			Player:     outcome.PlayerName,
			Objective:  outcome.Objective,
			Correct:    outcome.Correct,
			Awarded:    outcome.Awarded,
			Streak:     outcome.Streak,
			Phase:      outcome.Phase,
			NextPlayer: outcome.NextPlayer,
		})
		return
	}
	session, ok := c.session()
	if !ok {
		return
	}
	c.send("reveal", revealPayload{
		Question:    outcome.Question,
		Objective:   outcome.Objective,
		Correct:     outcome.Correct,
		Awarded:     outcome.Awarded,
		Explanation: session.Explanations()[outcome.Question.UID],
		Phase:       outcome.Phase,
		Players:     playerViews(session.Players()),
	})
}

func (c *wsConn) sendCurrentQuestion(playerName string) {
	session, ok := c.session()
	if !ok {
		return
	}
	question, position := session.CurrentQuestion()
	c.send("question", c.viewFor(session, question, position, playerName))
}

func (c *wsConn) viewFor(session *app.Session, question domain.TaggedQuestion, position int, playerName string) questionView {
	view := questionView{
		UID:    question.UID,
		Kind:   question.Kind,
		Number: position + 1,
		Total:  len(session.Questions()),
		Player: playerName,
		Phase:  session.Phase(),
		Topic:  question.Topic(),
		Prompt: question.Prompt(),
	}
	switch question.Kind {
	case domain.KindMultipleChoice:
		view.Options = question.MultipleChoice.Options
	case domain.KindMatching:
		prompts := make([]string, len(question.Matching.Pairs))
		choices := make([]string, len(question.Matching.Pairs))
		for i, pair := range question.Matching.Pairs {
			prompts[i] = pair.Prompt
			choices[i] = pair.Answer
		}
		// Sorted so the right column does not leak the pairing order.
		sort.Strings(choices)
		view.PairPrompts = prompts
		view.PairChoices = choices
	}
	if session.TimedMode() {
		view.TimeLimit = int(app.QuestionTime(session.Difficulty()).Seconds())
	}
	return view
}

func (c *wsConn) session() (*app.Session, bool) {
	session, ok := c.handler.service.Session(c.sessionID)
	if !ok {
		c.sendError(domain.ErrSessionNotFound.Error())
		return nil, false
	}
	return session, true
}

func (c *wsConn) send(msgType string, payload any) {
	if err := c.conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (c *wsConn) sendError(message string) {
	c.send("error", errorPayload{Message: message})
}

func playerViews(players []domain.PlayerState) []playerView {
	views := make([]playerView, len(players))
	for i, p := range players {
		views[i] = playerView{
			Name:        p.Name,
			Score:       p.Score,
			Points:      p.Points,
			Streak:      p.Streak,
			LastCorrect: p.LastCorrect,
		}
	}
	return views
}
