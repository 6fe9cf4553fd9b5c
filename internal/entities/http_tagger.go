package entities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"manthan/internal/config"
)

// HTTPTagger calls a local token-classification inference server (a
// BERT-family NER model served over HTTP) to tag text.
type HTTPTagger struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewHTTPTagger creates a tagger against the configured NER endpoint.
func NewHTTPTagger(cfg config.NER) *HTTPTagger {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "http://localhost:8089"
	}
	model := cfg.Model
	if model == "" {
		model = "bert-base-ner"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &HTTPTagger{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Probe checks that the inference server is running and accessible.
func (t *HTTPTagger) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ner service not accessible: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ner service returned status %d", resp.StatusCode)
	}
	return nil
}

type tagRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type tagResponse struct {
	Tokens []TaggedToken `json:"tokens"`
}

// Tag runs token classification over text.
func (t *HTTPTagger) Tag(ctx context.Context, text string) ([]TaggedToken, error) {
	body, err := json.Marshal(tagRequest{Model: t.model, Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/token-classification", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ner service returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed tagResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ner response: %w", err)
	}
	return parsed.Tokens, nil
}
