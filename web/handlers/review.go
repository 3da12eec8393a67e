package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/retainhq/retain/internal/llm"
	"github.com/retainhq/retain/internal/review"
	"github.com/retainhq/retain/internal/scheduler"
	"github.com/retainhq/retain/internal/storage"
	"github.com/retainhq/retain/pkg/types"
)

// Grader evaluates a free-text answer against the reference answer.
// Implemented by llm.AnswerGrader; tests substitute fakes.
type Grader interface {
	Grade(ctx context.Context, question, correctAnswer, userAnswer string) (*llm.Evaluation, error)
}

// ReviewHandlers contains HTTP handlers for the review flow: the due queue,
// per-rating previews, and the grade-and-commit operation driven by review
// sessions in the UI.
type ReviewHandlers struct {
	store       storage.Store
	sched       *scheduler.Scheduler
	grader      Grader
	transcriber llm.Transcriber
	hub         *WebSocketHub
}

// NewReviewHandlers creates a new ReviewHandlers instance. Grader and
// transcriber are optional; the corresponding endpoints return 503 when
// they are not configured.
func NewReviewHandlers(store storage.Store, sched *scheduler.Scheduler, grader Grader, transcriber llm.Transcriber, hub *WebSocketHub) *ReviewHandlers {
	return &ReviewHandlers{
		store:       store,
		sched:       sched,
		grader:      grader,
		transcriber: transcriber,
		hub:         hub,
	}
}

// GetDue handles GET /api/review/due - questions due for review, ordered by
// due time. Supports limit and context_id query parameters.
func (h *ReviewHandlers) GetDue(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), review.DefaultQueueLimit)
	if limit > 1000 {
		limit = 1000
	}
	contextID := r.URL.Query().Get("context_id")

	queue, err := review.LoadQueue(r.Context(), h.store, time.Now(), limit, contextID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load due questions", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"questions": queue,
		"count":     len(queue),
	})
}

// PreviewEntry describes the outcome of one rating choice.
type PreviewEntry struct {
	State         string    `json:"state"`
	Due           time.Time `json:"due"`
	ScheduledDays int       `json:"scheduled_days"`
}

// Preview handles GET /api/questions/{id}/preview - shows, per rating, when
// the question would next be due. Never mutates the stored card.
func (h *ReviewHandlers) Preview(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "question ID is required", nil)
		return
	}

	question, err := h.store.GetQuestion(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "question not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get question", err)
		return
	}

	preview, err := h.sched.Preview(question.Card, time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute preview", err)
		return
	}

	entries := make(map[string]PreviewEntry, len(preview))
	for rating, card := range preview {
		entries[rating.String()] = PreviewEntry{
			State:         card.State.String(),
			Due:           card.Due,
			ScheduledDays: card.ScheduledDays,
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"question_id": question.ID,
		"preview":     entries,
	})
}

// SubmitReviewRequest represents the request body for committing a review.
// Either rating (self-graded) or answer (AI-graded) must be provided.
type SubmitReviewRequest struct {
	Rating      *types.Rating `json:"rating,omitempty"`
	Answer      string        `json:"answer,omitempty"`
	TimeSpentMS int64         `json:"time_spent_ms,omitempty"`
}

// ReviewResponse represents the outcome of a committed review.
type ReviewResponse struct {
	QuestionID string       `json:"question_id"`
	Rating     types.Rating `json:"rating"`
	Feedback   string       `json:"feedback,omitempty"`
	State      string       `json:"state"`
	NextDue    time.Time    `json:"next_due"`
}

// SubmitReview handles POST /api/questions/{id}/review - grade an answer
// (or accept a self-assigned rating), advance the card and persist it.
// Nothing is persisted when grading fails.
func (h *ReviewHandlers) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "question ID is required", nil)
		return
	}

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	question, err := h.store.GetQuestion(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "question not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get question", err)
		return
	}

	var rating types.Rating
	var feedback string
	switch {
	case req.Rating != nil:
		rating = *req.Rating
		if !rating.IsValid() {
			respondError(w, http.StatusBadRequest, "invalid rating", nil)
			return
		}
	case strings.TrimSpace(req.Answer) != "":
		if h.grader == nil {
			respondError(w, http.StatusServiceUnavailable, "answer grading is not configured", nil)
			return
		}
		eval, err := h.grader.Grade(r.Context(), question.Prompt, question.Answer, req.Answer)
		if err != nil {
			respondError(w, http.StatusBadGateway, "failed to grade answer", err)
			return
		}
		rating = eval.Rating
		feedback = eval.Feedback
	default:
		respondError(w, http.StatusBadRequest, "rating or answer is required", nil)
		return
	}

	now := time.Now()
	card, err := h.sched.Commit(question.Card, rating, now)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to schedule question", err)
		return
	}

	question.Card = card
	question.UpdatedAt = now
	if err := h.store.Save(r.Context(), question); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			respondError(w, http.StatusConflict, "question was modified concurrently", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to save question", err)
		return
	}

	rec := &storage.ReviewLog{
		QuestionID: question.ID,
		Rating:     rating,
		ReviewedAt: now,
		TimeSpent:  time.Duration(req.TimeSpentMS) * time.Millisecond,
	}
	if err := h.store.RecordReview(r.Context(), rec); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record review", err)
		return
	}

	response := ReviewResponse{
		QuestionID: question.ID,
		Rating:     rating,
		Feedback:   feedback,
		State:      card.State.String(),
		NextDue:    card.Due,
	}

	if h.hub != nil {
		h.hub.Broadcast(Event{Type: EventReviewCommitted, Data: response})
	}

	respondJSON(w, http.StatusOK, response)
}

// maxAudioUploadBytes caps transcription uploads at 25 MB, matching the
// Whisper API limit.
const maxAudioUploadBytes = 25 << 20

// Transcribe handles POST /api/questions/{id}/transcribe - converts a spoken
// answer to text. The transcript is returned to the client, which submits it
// through the normal review endpoint.
func (h *ReviewHandlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	if h.transcriber == nil {
		respondError(w, http.StatusServiceUnavailable, "transcription is not configured", nil)
		return
	}

	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "question ID is required", nil)
		return
	}
	if _, err := h.store.GetQuestion(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "question not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get question", err)
		return
	}

	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form", err)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required", err)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read audio", err)
		return
	}
	if len(audio) == 0 {
		respondError(w, http.StatusBadRequest, "audio file is empty", nil)
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	}
	if format == "" {
		format = "webm"
	}

	text, err := h.transcriber.Transcribe(r.Context(), audio, format)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to transcribe audio", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"question_id": id,
		"text":        text,
	})
}
