package kagi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"kagi-bot/internal/application/port/output"
	"kagi-bot/internal/domain/entity"
)

const DefaultEndpoint = "https://kagi.com/api/v0/fastgpt"

var (
	_ output.AnswerPort    = (*FastGPTAdapter)(nil)
	_ output.ResponseError = (*HTTPError)(nil)
)

type FastGPTAdapter struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type Config struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	Logger     output.LoggerPort
}

func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:   apiKey,
		Endpoint: DefaultEndpoint,
	}
}

type fastGPTRequest struct {
	Query     string `json:"query"`
	Cache     bool   `json:"cache"`
	WebSearch bool   `json:"web_search"`
}

// HTTPError is returned when FastGPT answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// ResponseBody returns the error body on a single line, or "" when there was none.
func (e *HTTPError) ResponseBody() string {
	if len(bytes.TrimSpace(e.Body)) == 0 {
		return ""
	}
	return entity.CompactJSON(e.Body)
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
	)

	resp, err := t.base.RoundTrip(req)

	if resp != nil {
		t.logger.Debug("HTTP Response",
			"status", resp.Status,
			"statusCode", resp.StatusCode,
		)
	}

	return resp, err
}

func NewFastGPTAdapter(cfg Config) *FastGPTAdapter {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	if cfg.Logger != nil {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *client
		wrapped.Transport = &loggingTransport{
			base:   base,
			logger: cfg.Logger,
		}
		client = &wrapped
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &FastGPTAdapter{
		client:   client,
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
	}
}

func (a *FastGPTAdapter) Ask(ctx context.Context, query string) (*entity.AnswerResponse, error) {
	payload, err := json.Marshal(fastGPTRequest{
		Query:     query,
		Cache:     true,
		WebSearch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bot "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fastgpt request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	return entity.DecodeAnswerResponse(body), nil
}
