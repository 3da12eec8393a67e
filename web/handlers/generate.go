package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/retainhq/retain/internal/ingest"
	"github.com/retainhq/retain/internal/llm"
	"github.com/retainhq/retain/internal/storage"
	"github.com/retainhq/retain/pkg/types"
)

// FlashcardGenerator produces question/answer pairs from source material.
// Implemented by llm.QuestionGenerator; tests substitute fakes.
type FlashcardGenerator interface {
	Generate(ctx context.Context, contextText string) ([]llm.Flashcard, error)
}

// duplicateThreshold is the cosine similarity above which a generated
// question is considered a near-duplicate of an existing one and dropped.
const duplicateThreshold = 0.9

// GenerateHandlers contains HTTP handlers for AI question generation.
type GenerateHandlers struct {
	store     storage.Store
	generator FlashcardGenerator
	embedder  llm.EmbeddingGenerator
	hub       *WebSocketHub
}

// NewGenerateHandlers creates a new GenerateHandlers instance. The embedder
// is optional; without it duplicate detection is skipped.
func NewGenerateHandlers(store storage.Store, generator FlashcardGenerator, embedder llm.EmbeddingGenerator, hub *WebSocketHub) *GenerateHandlers {
	return &GenerateHandlers{
		store:     store,
		generator: generator,
		embedder:  embedder,
		hub:       hub,
	}
}

// GenerateResponse is the response format for POST /api/contexts/{id}/generate.
type GenerateResponse struct {
	ContextID  string            `json:"context_id"`
	Created    int               `json:"created"`
	Duplicates int               `json:"duplicates"`
	Questions  []*types.Question `json:"questions"`
}

// Generate handles POST /api/contexts/{id}/generate - generate questions
// from a context's content. Near-duplicates of already stored questions are
// dropped when embeddings are available.
func (h *GenerateHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		respondError(w, http.StatusServiceUnavailable, "question generation is not configured", nil)
		return
	}

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

	cards, err := h.generator.Generate(r.Context(), c.Content)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to generate questions", err)
		return
	}

	embStore, _ := h.store.(storage.EmbeddingStore)

	var created []*types.Question
	duplicates := 0
	for _, card := range cards {
		embedding := h.embedForDedup(r.Context(), card.Question)

		if embedding != nil && embStore != nil {
			similarity, err := embStore.MaxSimilarity(r.Context(), c.ID, embedding)
			if err != nil {
				log.Printf("WARNING: similarity check failed: %v", err)
			} else if similarity >= duplicateThreshold {
				duplicates++
				continue
			}
		}

		now := time.Now()
		q := &types.Question{
			ID:        generateID("qst"),
			ContextID: c.ID,
			Prompt:    card.Question,
			Answer:    card.Answer,
			Card:      types.NewCard(now),
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		}
		if err := h.store.CreateQuestion(r.Context(), q); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create question", err)
			return
		}

		if embedding != nil && embStore != nil {
			if err := embStore.StoreQuestionEmbedding(r.Context(), q.ID, embedding, h.embedder.GetModel()); err != nil {
				log.Printf("WARNING: failed to store question embedding: %v", err)
			}
		}

		created = append(created, q)
	}

	response := GenerateResponse{
		ContextID:  c.ID,
		Created:    len(created),
		Duplicates: duplicates,
		Questions:  created,
	}

	if h.hub != nil {
		h.hub.Broadcast(Event{Type: EventQuestionGenerated, Data: map[string]interface{}{
			"context_id": c.ID,
			"created":    len(created),
			"duplicates": duplicates,
		}})
	}

	respondJSON(w, http.StatusOK, response)
}

// embedForDedup embeds the prompt text for duplicate detection. Embedding
// failures degrade to no dedup rather than failing generation.
func (h *GenerateHandlers) embedForDedup(ctx context.Context, text string) []float32 {
	if h.embedder == nil {
		return nil
	}
	embedding, err := h.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("WARNING: embedding failed, skipping duplicate check: %v", err)
		return nil
	}
	return embedding
}

// maxImportBytes caps markdown import payloads.
const maxImportBytes = 4 << 20

// ImportMarkdown handles POST /api/import/markdown - parse a markdown deck
// (YAML front matter plus Q:/A: blocks) into a context and its questions.
func (h *GenerateHandlers) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}
	h.importMarkdown(w, r, body)
}

// ImportMarkdownRequest represents the JSON request body for markdown import.
type ImportMarkdownRequest struct {
	Content string `json:"content"`
}

func (h *GenerateHandlers) importMarkdown(w http.ResponseWriter, r *http.Request, body []byte) {
	// Accept either raw markdown or a JSON envelope {"content": "..."}
	if len(body) > 0 && body[0] == '{' {
		var req ImportMarkdownRequest
		if err := json.Unmarshal(body, &req); err == nil && req.Content != "" {
			body = []byte(req.Content)
		}
	}

	doc, err := ingest.ParseMarkdown(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse markdown", err)
		return
	}
	if len(doc.Cards) == 0 {
		respondError(w, http.StatusBadRequest, "no Q:/A: blocks found", nil)
		return
	}

	title := doc.Title
	if title == "" {
		title = "Imported deck"
	}

	c := &types.Context{
		ID:        generateID("ctx"),
		Name:      title,
		Content:   doc.Content,
		Source:    "import",
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateContext(r.Context(), c); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create context", err)
		return
	}

	count := 0
	for _, qa := range doc.Cards {
		now := time.Now()
		q := &types.Question{
			ID:        generateID("qst"),
			ContextID: c.ID,
			Prompt:    qa.Question,
			Answer:    qa.Answer,
			Card:      types.NewCard(now),
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		}
		if err := h.store.CreateQuestion(r.Context(), q); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create question", err)
			return
		}
		count++
	}

	respondJSON(w, http.StatusCreated, ImportResponse{
		ContextID: c.ID,
		Title:     title,
		Questions: count,
		Message:   "import complete",
	})
}
