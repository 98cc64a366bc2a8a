package http

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/domain"
	"go.uber.org/zap"
)

// accountHeader carries the caller's identity. In the original hosting runtime
// this comes from the transaction signer; here the trusted edge supplies it.
const accountHeader = "X-Account-ID"

type Handler struct {
	service *app.Service
	log     *zap.Logger
}

func NewHandler(service *app.Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register wires every endpoint into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes", h.listPublished)
	mux.HandleFunc("POST /quizzes/{id}/publish", h.publishQuiz)
	mux.HandleFunc("GET /quizzes/{id}/status", h.quizStatus)
	mux.HandleFunc("POST /quizzes/{id}/answers", h.submitAnswer)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

type createQuizRequest struct {
	Question   string `json:"question"`
	AnswerHash string `json:"answerHash"`
	MaxPrize   string `json:"maxPrize"`
	Publish    bool   `json:"publish"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prize, ok := new(big.Int).SetString(req.MaxPrize, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "maxPrize must be a decimal integer string")
		return
	}

	id, err := h.service.CreateQuiz(r.Context(), caller, req.Question, req.AnswerHash, prize, req.Publish)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) publishQuiz(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.service.PublishQuiz(r.Context(), caller, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// quizStatus requires no caller identity; publication state is public. An
// unknown id yields a null status, not an error.
func (h *Handler) quizStatus(w http.ResponseWriter, r *http.Request) {
	status, found, err := h.service.QuizStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	var payload struct {
		Status *domain.QuizStatus `json:"status"`
	}
	if found {
		payload.Status = &status
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) listPublished(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListPublished(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.QuizSummary{"quizzes": quizzes})
}

type submitAnswerRequest struct {
	Answer string `json:"answer"`
}

type submitAnswerResponse struct {
	domain.SubmitOutcome
	Prize string `json:"prize,omitempty"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := h.service.SubmitAnswer(r.Context(), caller, r.PathValue("id"), req.Answer)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	resp := submitAnswerResponse{SubmitOutcome: outcome}
	if outcome.Prize != nil {
		resp.Prize = outcome.Prize.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	account := r.Header.Get(accountHeader)
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing "+accountHeader+" header")
		return "", false
	}
	return account, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateQuiz),
		errors.Is(err, domain.ErrQuizNotPublished),
		errors.Is(err, domain.ErrAlreadySolved),
		errors.Is(err, domain.ErrOutOfRetries):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCorruptState):
		h.log.Error("corrupt contract state", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
