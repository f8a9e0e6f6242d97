package albert

import "github.com/unifiedui/assistant-bot/internal/domain/models"

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []models.Turn `json:"messages"`
	Mode        string        `json:"mode,omitempty"`
	Limit       int           `json:"limit,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	RAGSources []string `json:"rag_sources,omitempty"`
}

// modelConfig is one entry of the /models response, keyed by model id.
type modelConfig struct {
	Config struct {
		Prompts []struct {
			Mode string `json:"mode,omitempty"`
		} `json:"prompts"`
	} `json:"config"`
}

type chunksRequest struct {
	UIDs []string `json:"uids"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}
