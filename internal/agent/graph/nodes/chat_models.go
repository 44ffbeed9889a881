package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/finsight-router/server/internal/agent/model"
	logx "github.com/finsight-router/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Financial *model.FinancialModelConfig
	Document  *model.DocumentModelConfig
}

// ChatModels holds one unbound Gemini model per agent. Tools are bound per
// agent with WithTools, which returns a new instance.
type ChatModels struct {
	Client             *genai.Client
	Financial          *gemini.ChatModel
	Document           *gemini.ChatModel
	FinancialModelName string
	DocumentModelName  string
}

// NewGenAIClient creates the shared Gemini client used for chat and embeddings.
func NewGenAIClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModels creates the financial and document chat models on client.
func NewChatModels(ctx context.Context, client *genai.Client, config ChatModelConfig) (*ChatModels, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client is nil")
	}
	if config.Financial == nil || config.Document == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	financial, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Financial.Model,
		Temperature: &config.Financial.Temperature,
		MaxTokens:   &config.Financial.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating financial model")
		return nil, fmt.Errorf("error creating financial model: %w", err)
	}

	document, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Document.Model,
		Temperature: &config.Document.Temperature,
		MaxTokens:   &config.Document.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating document model")
		return nil, fmt.Errorf("error creating document model: %w", err)
	}

	return &ChatModels{
		Client:             client,
		Financial:          financial,
		Document:           document,
		FinancialModelName: config.Financial.Model,
		DocumentModelName:  config.Document.Model,
	}, nil
}
