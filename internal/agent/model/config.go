package model

// ================ Config ================
type GraphConfig struct {
	TranscriptTTL string `envconfig:"TRANSCRIPT_TTL" default:"24h"`
	Tools         struct {
		MaxCalls int `envconfig:"TOOL_MAX_CALLS" default:"10"`
	}
}

type FinancialModelConfig struct {
	Model       string  `envconfig:"FINANCIAL_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"FINANCIAL_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"FINANCIAL_TEMPERATURE" default:"0.1"`
	ToolChoice  string  `envconfig:"FINANCIAL_TOOL_CHOICE" default:"grounded"`
}

type DocumentModelConfig struct {
	Model       string  `envconfig:"DOCUMENT_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"DOCUMENT_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"DOCUMENT_TEMPERATURE" default:"0.2"`
	ToolChoice  string  `envconfig:"DOCUMENT_TOOL_CHOICE" default:"grounded"`
}

type RetrievalConfig struct {
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	TopK                int    `envconfig:"RETRIEVAL_TOP_K" default:"10"`
}
