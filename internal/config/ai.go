package config

// GeminiModels defines which Gemini models to use for coverage evaluation
type GeminiModels struct {
	// Coverage is the primary model for transcript coverage classification
	// (called at conversational cadence after debouncing, needs to be fast)
	Coverage string `json:"coverage"`

	// CoverageFallback is retried once whenever the primary call fails
	CoverageFallback string `json:"coverageFallback"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey    string       `json:"-"` // Never serialize
	BaseURL   string       `json:"baseUrl"`
	Models    GeminiModels `json:"models"`
	TimeoutMS int          `json:"timeoutMs"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  getEnv("GEMINI_API_KEY", ""),
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		Models: GeminiModels{
			Coverage:         getEnv("GEMINI_MODEL_COVERAGE", "gemini-2.5-flash-preview-05-20"),
			CoverageFallback: getEnv("GEMINI_MODEL_COVERAGE_FALLBACK", "gemini-2.0-flash"),
		},
		TimeoutMS: getEnvInt("GEMINI_TIMEOUT_MS", 10000),
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}
