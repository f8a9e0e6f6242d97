// Package answer defines the answer-generation service collaborator.
package answer

import (
	"context"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// SamplingParams selects how the answer service generates a reply.
type SamplingParams struct {
	Model string
	Mode  string
	// Limit is the number of retrieved chunks for RAG modes.
	Limit       int
	Temperature float64
}

// Answer is the generated reply.
type Answer struct {
	Text string
	// Sources are the retrieval references used to produce Text.
	Sources []string
}

// Source is a resolved retrieval reference.
type Source struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Service is the external answer generator. Errors carry a human-readable
// detail (see domain errors.Detail).
type Service interface {
	// Generate produces an answer for the ordered turns.
	Generate(ctx context.Context, turns []models.Turn, params SamplingParams) (*Answer, error)

	// ListModels returns the available model ids.
	ListModels(ctx context.Context) ([]string, error)

	// ListModes returns the prompt modes of a model.
	ListModes(ctx context.Context, model string) ([]string, error)

	// FetchSources resolves retrieval references.
	FetchSources(ctx context.Context, refs []string) ([]Source, error)
}
