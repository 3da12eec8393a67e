package handlers

import (
	"github.com/retainhq/retain/internal/config"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ConfigResponse is the response format for GET /api/config.
// API keys are masked for security.
type ConfigResponse struct {
	LLM       LLMConfigResponse       `json:"llm"`
	Scheduler SchedulerConfigResponse `json:"scheduler"`
	Storage   StorageConfigResponse   `json:"storage"`
}

// LLMConfigResponse contains LLM configuration with masked API keys.
type LLMConfigResponse struct {
	Provider           string `json:"provider"`
	GeminiAPIKey       string `json:"gemini_api_key"` // Masked
	GeminiModel        string `json:"gemini_model"`
	OpenAIAPIKey       string `json:"openai_api_key"` // Masked
	OpenAIModel        string `json:"openai_model"`
	EmbeddingModel     string `json:"embedding_model"`
	TranscriptionModel string `json:"transcription_model"`
}

// SchedulerConfigResponse contains scheduling settings.
type SchedulerConfigResponse struct {
	DesiredRetention float64 `json:"desired_retention"`
	MaximumInterval  int     `json:"maximum_interval"`
	DisableFuzzing   bool    `json:"disable_fuzzing"`
}

// StorageConfigResponse contains storage settings.
type StorageConfigResponse struct {
	Engine   string `json:"engine"`
	DataPath string `json:"data_path"`
}

// ImportResponse is the response format for POST /api/import/markdown.
type ImportResponse struct {
	ContextID string `json:"context_id"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
	Message   string `json:"message"`
}

// MaskAPIKey masks an API key for safe display.
// Shows first 7 chars and last 4 chars, hides the middle.
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// ToConfigResponse converts a config.Config to ConfigResponse with masked keys.
func ToConfigResponse(cfg *config.Config) ConfigResponse {
	return ConfigResponse{
		LLM: LLMConfigResponse{
			Provider:           cfg.LLM.Provider,
			GeminiAPIKey:       MaskAPIKey(cfg.LLM.GeminiAPIKey),
			GeminiModel:        cfg.LLM.GeminiModel,
			OpenAIAPIKey:       MaskAPIKey(cfg.LLM.OpenAIAPIKey),
			OpenAIModel:        cfg.LLM.OpenAIModel,
			EmbeddingModel:     cfg.LLM.EmbeddingModel,
			TranscriptionModel: cfg.LLM.TranscriptionModel,
		},
		Scheduler: SchedulerConfigResponse{
			DesiredRetention: cfg.Scheduler.DesiredRetention,
			MaximumInterval:  cfg.Scheduler.MaximumInterval,
			DisableFuzzing:   cfg.Scheduler.DisableFuzzing,
		},
		Storage: StorageConfigResponse{
			Engine:   cfg.Storage.StorageEngine,
			DataPath: cfg.Storage.DataPath,
		},
	}
}
