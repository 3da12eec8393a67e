// Package llm provides the AI clients used for question generation and
// answer grading, behind small provider-agnostic interfaces.
package llm

import "context"

// TextGenerator is the interface for LLM text completion.
// Grading and generation prompts use single-string completion style.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings,
// used to reject near-duplicate generated questions.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// Transcriber converts recorded audio to text for spoken answers.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
	GetModel() string
}
