package llm

import "fmt"

// ProviderConfig selects and configures a provider for one capability.
type ProviderConfig struct {
	Provider string // "gemini", "openai"
	APIKey   string
	Model    string
	BaseURL  string
}

// NewTextGenerator creates the appropriate TextGenerator for the config.
func NewTextGenerator(cfg ProviderConfig) (TextGenerator, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator creates the appropriate EmbeddingGenerator.
// Returns (nil, nil) for providers without embedding support; duplicate
// detection is then skipped.
func NewEmbeddingGenerator(cfg ProviderConfig) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	default:
		return nil, nil
	}
}

// NewTranscriber creates the appropriate Transcriber.
func NewTranscriber(cfg ProviderConfig) (Transcriber, error) {
	switch cfg.Provider {
	case "openai", "whisper", "":
		return NewWhisperClient(WhisperConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %q", cfg.Provider)
	}
}
