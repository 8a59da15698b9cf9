package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vincentrandon/freelance-project-saas/config"
	"github.com/vincentrandon/freelance-project-saas/models/preview/quality"
	"github.com/vincentrandon/freelance-project-saas/types"
)

var metricSuggestionFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reconcile_suggestion_failures_total",
	Help: "Total number of failed task suggestion calls",
})

// SuggestionClient asks the AI collaborator for a refined version of a vague
// task line. Calls are bounded by the suggestion timeout; the analyzer
// treats every failure as "no suggestion".
type SuggestionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

var _ quality.SuggestionProvider = (*SuggestionClient)(nil)

// NewSuggestionClient creates a suggestion client from the AI service config.
func NewSuggestionClient(cfg config.AIServiceConfig) *SuggestionClient {
	timeout := time.Duration(cfg.SuggestionTimeoutSeconds) * time.Second
	return &SuggestionClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type suggestionRequest struct {
	Task   types.ExtractedTask `json:"task"`
	Issues []string            `json:"issues"`
}

// SuggestTask requests one refined task. The context is capped at the
// configured timeout so a slow collaborator never stalls preview assembly.
func (c *SuggestionClient) SuggestTask(ctx context.Context, task types.ExtractedTask, issues []string) (*types.TaskSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(suggestionRequest{Task: task, Issues: issues})
	if err != nil {
		metricSuggestionFailures.Inc()
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/suggest-task", bytes.NewReader(payload))
	if err != nil {
		metricSuggestionFailures.Inc()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metricSuggestionFailures.Inc()
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metricSuggestionFailures.Inc()
		return nil, fmt.Errorf("suggestion endpoint returned %d", resp.StatusCode)
	}

	suggestion := &types.TaskSuggestion{}
	if err := json.NewDecoder(resp.Body).Decode(suggestion); err != nil {
		metricSuggestionFailures.Inc()
		return nil, fmt.Errorf("decode suggestion: %w", err)
	}
	return suggestion, nil
}
