package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/retainhq/retain/internal/config"
	"github.com/retainhq/retain/internal/storage"
	"github.com/retainhq/retain/pkg/types"
)

// APIHandlers contains HTTP handlers for questions, contexts and config.
type APIHandlers struct {
	store  storage.Store
	config *config.Config
	db     *sql.DB // Optional database connection for settings persistence
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(store storage.Store, cfg *config.Config) *APIHandlers {
	return &APIHandlers{
		store:  store,
		config: cfg,
	}
}

// NewAPIHandlersWithDB creates a new APIHandlers instance with database support
// for user settings persistence.
func NewAPIHandlersWithDB(store storage.Store, cfg *config.Config, db *sql.DB) *APIHandlers {
	return &APIHandlers{
		store:  store,
		config: cfg,
		db:     db,
	}
}

// ListQuestions handles GET /api/questions - list questions with pagination and filtering.
func (h *APIHandlers) ListQuestions(w http.ResponseWriter, r *http.Request) {
	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	// Enforce maximum pagination limit to prevent resource exhaustion
	if limit > 1000 {
		limit = 1000
	}

	opts := storage.ListOptions{
		Page:      page,
		Limit:     limit,
		ContextID: r.URL.Query().Get("context_id"),
		State:     r.URL.Query().Get("state"),
	}
	opts.Normalize()

	result, err := h.store.ListQuestions(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list questions", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetQuestion handles GET /api/questions/{id} - get a single question by ID.
func (h *APIHandlers) GetQuestion(w http.ResponseWriter, r *http.Request) {
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

	respondJSON(w, http.StatusOK, question)
}

// CreateQuestionRequest represents the request body for creating a question.
type CreateQuestionRequest struct {
	Prompt    string `json:"prompt"`
	Answer    string `json:"answer"`
	ContextID string `json:"context_id,omitempty"`
}

// CreateQuestion handles POST /api/questions - create a new question.
// The question starts with a fresh card due immediately.
func (h *APIHandlers) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	if req.Prompt == "" {
		respondError(w, http.StatusBadRequest, "prompt is required", nil)
		return
	}
	if req.Answer == "" {
		respondError(w, http.StatusBadRequest, "answer is required", nil)
		return
	}

	if req.ContextID != "" {
		if _, err := h.store.GetContext(r.Context(), req.ContextID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(w, http.StatusBadRequest, "context not found", err)
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to check context", err)
			return
		}
	}

	now := time.Now()
	question := &types.Question{
		ID:        generateID("qst"),
		ContextID: req.ContextID,
		Prompt:    req.Prompt,
		Answer:    req.Answer,
		Card:      types.NewCard(now),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	if err := h.store.CreateQuestion(r.Context(), question); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create question", err)
		return
	}

	respondJSON(w, http.StatusCreated, question)
}

// UpdateQuestionRequest represents the request body for updating a question.
// All fields are optional for partial updates. The card is never editable
// through this endpoint; it changes only via review commits.
type UpdateQuestionRequest struct {
	Prompt *string `json:"prompt,omitempty"`
	Answer *string `json:"answer,omitempty"`
}

// UpdateQuestion handles PUT /api/questions/{id} - update prompt and answer text.
func (h *APIHandlers) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "question ID is required", nil)
		return
	}

	var req UpdateQuestionRequest
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

	if req.Prompt != nil {
		question.Prompt = *req.Prompt
	}
	if req.Answer != nil {
		question.Answer = *req.Answer
	}
	question.UpdatedAt = time.Now()

	if err := h.store.Save(r.Context(), question); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			respondError(w, http.StatusConflict, "question was modified concurrently", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update question", err)
		return
	}

	respondJSON(w, http.StatusOK, question)
}

// DeleteQuestion handles DELETE /api/questions/{id} - delete a question.
func (h *APIHandlers) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "question ID is required", nil)
		return
	}

	if err := h.store.DeleteQuestion(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "question not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete question", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListContexts handles GET /api/contexts - list all contexts, newest first.
func (h *APIHandlers) ListContexts(w http.ResponseWriter, r *http.Request) {
	contexts, err := h.store.ListContexts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list contexts", err)
		return
	}

	respondJSON(w, http.StatusOK, contexts)
}

// GetContext handles GET /api/contexts/{id} - get a single context by ID.
func (h *APIHandlers) GetContext(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "context ID is required", nil)
		return
	}

	c, err := h.store.GetContext(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "context not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get context", err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// CreateContextRequest represents the request body for creating a context.
type CreateContextRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

// CreateContext handles POST /api/contexts - ingest new source material.
func (h *APIHandlers) CreateContext(w http.ResponseWriter, r *http.Request) {
	var req CreateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required", nil)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.Source == "" {
		req.Source = "text"
	}

	c := &types.Context{
		ID:        generateID("ctx"),
		Name:      req.Name,
		Content:   req.Content,
		Source:    req.Source,
		CreatedAt: time.Now(),
	}

	if err := h.store.CreateContext(r.Context(), c); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create context", err)
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

// DeleteContext handles DELETE /api/contexts/{id} - delete a context and its questions.
func (h *APIHandlers) DeleteContext(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "context ID is required", nil)
		return
	}

	if err := h.store.DeleteContext(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "context not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete context", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetConfig handles GET /api/config - returns configuration with masked keys.
func (h *APIHandlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ToConfigResponse(h.config))
}

// UserConfigRequest represents the request body for user config updates.
type UserConfigRequest struct {
	UserName string `json:"user_name"`
}

// UserConfigResponse represents the response format for GET /api/config/user.
type UserConfigResponse struct {
	UserName string `json:"user_name"`
}

// GetUserConfig handles GET /api/config/user - retrieve user configuration.
func (h *APIHandlers) GetUserConfig(w http.ResponseWriter, r *http.Request) {
	// If we have a database connection, load fresh from DB to ensure latest values
	userName := h.config.User.UserName
	if h.db != nil {
		var dbUserName string
		err := h.db.QueryRow("SELECT value FROM settings WHERE key = ?", "user_name").Scan(&dbUserName)
		if err == nil {
			userName = dbUserName
		}
		// If not found in DB or error, fall back to in-memory value
	}

	respondJSON(w, http.StatusOK, UserConfigResponse{UserName: userName})
}

// PostUserConfig handles POST /api/config/user - update user configuration.
func (h *APIHandlers) PostUserConfig(w http.ResponseWriter, r *http.Request) {
	var req UserConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	h.config.User.UserName = req.UserName

	// Persist to database if database connection is available
	if h.db != nil {
		if err := h.config.SaveConfig(h.db); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to save config", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, UserConfigResponse{UserName: h.config.User.UserName})
}

// Helper functions

// extractID extracts a path parameter from the request.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, log but don't try to write another response
		// (headers already sent)
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}

// generateID generates a unique ID in the format prefix:uuid.
func generateID(prefix string) string {
	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("%s:%s", prefix, shortUUID)
}
