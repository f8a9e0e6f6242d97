// Package albert provides the HTTP client of the Albert answer service.
package albert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/core/answer"
	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
)

const serviceName = "albert"

// ClientConfig holds the configuration for the Albert API client.
type ClientConfig struct {
	BaseURL    string
	APIToken   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements the answer.Service interface over the Albert API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ answer.Service = (*Client)(nil)

// NewClient creates a new Albert API client.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		apiToken:   config.APIToken,
		httpClient: httpClient,
		log:        logger.Component("albert"),
	}, nil
}

// Generate sends the turns to the chat completion endpoint.
func (c *Client) Generate(ctx context.Context, turns []models.Turn, params answer.SamplingParams) (*answer.Answer, error) {
	if len(turns) == 0 {
		return nil, domainerrors.NewValidationError("no turns to submit", "")
	}

	mode := params.Mode
	if mode == models.ModeNoRAG {
		mode = ""
	}

	payload := &completionRequest{
		Model:       params.Model,
		Messages:    turns,
		Mode:        mode,
		Limit:       params.Limit,
		Temperature: params.Temperature,
	}

	var response completionResponse
	if err := c.do(ctx, http.MethodPost, "/chat/completions", payload, &response); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, domainerrors.NewUpstreamError(serviceName, "empty completion", nil)
	}

	return &answer.Answer{
		Text:    response.Choices[0].Message.Content,
		Sources: response.RAGSources,
	}, nil
}

// ListModels returns the model ids served by the API, sorted.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	configs, err := c.models(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListModes returns the prompt modes of model. An unknown model has no modes.
func (c *Client) ListModes(ctx context.Context, model string) ([]string, error) {
	configs, err := c.models(ctx)
	if err != nil {
		return nil, err
	}

	config, ok := configs[model]
	if !ok {
		return nil, nil
	}

	var modes []string
	for _, prompt := range config.Config.Prompts {
		if prompt.Mode != "" {
			modes = append(modes, prompt.Mode)
		}
	}
	return modes, nil
}

// FetchSources resolves retrieval references into documents.
func (c *Client) FetchSources(ctx context.Context, refs []string) ([]answer.Source, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	var sources []answer.Source
	if err := c.do(ctx, http.MethodPost, "/get_chunks", &chunksRequest{UIDs: refs}, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (c *Client) models(ctx context.Context) (map[string]modelConfig, error) {
	var configs map[string]modelConfig
	if err := c.do(ctx, http.MethodGet, "/models", nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// do performs a JSON request. Transport failures and non-2xx responses are
// returned as upstream errors carrying the API "detail" field.
func (c *Client) do(ctx context.Context, method, route string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, payload != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domainerrors.NewUpstreamError(serviceName, err.Error(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainerrors.NewUpstreamError(serviceName, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := errorDetail(respBody)
		c.log.Error().Int("status", resp.StatusCode).Str("route", route).Str("detail", detail).Msg("Albert API error")
		return domainerrors.NewUpstreamError(serviceName, detail, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return domainerrors.NewUpstreamError(serviceName, "invalid response body", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

// errorDetail extracts the "detail" field of an error body, falling back
// to the raw body.
func errorDetail(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		if s, ok := parsed.Detail.(string); ok {
			return s
		}
		if encoded, err := json.Marshal(parsed.Detail); err == nil {
			return string(encoded)
		}
	}
	return strings.TrimSpace(string(body))
}
