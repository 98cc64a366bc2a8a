package http

import (
	"encoding/json"
	"net/http"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler lets a participant hold one connection to submit answers and hear
// about quizzes as the owner publishes them.
type WSHandler struct {
	service  *app.Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuizID string `json:"quizId"`
	Answer string `json:"answer"`
}

type outcomePayload struct {
	QuizID      string `json:"quizId"`
	Correct     bool   `json:"correct"`
	Prize       string `json:"prize,omitempty"`
	RetriesLeft int    `json:"retriesLeft"`
	Exhausted   bool   `json:"exhausted"`
	Message     string `json:"message"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type quizzesPayload struct {
	Quizzes []domain.QuizSummary `json:"quizzes"`
}

// ServeWS upgrades the connection and wires it into the contract use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		http.Error(w, "missing account", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	published, err := h.service.ListPublished(r.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := h.service.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case summary, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "published", Payload: summary}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "quizzes", Payload: quizzesPayload{Quizzes: published}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			outcome, err := h.service.SubmitAnswer(r.Context(), account, payload.QuizID, payload.Answer)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			result := outcomePayload{
				QuizID:      payload.QuizID,
				Correct:     outcome.Correct,
				RetriesLeft: outcome.RetriesLeft,
				Exhausted:   outcome.Exhausted,
				Message:     outcome.Message,
			}
			if outcome.Prize != nil {
				result.Prize = outcome.Prize.String()
			}
			send <- outboundMessage[any]{Type: "outcome", Payload: result}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
