// Package ai holds the HTTP clients for the external AI collaborator: the
// document parser and the task suggestion endpoint. The parser is a black
// box; its output is schema-validated before it enters the system.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/vincentrandon/freelance-project-saas/config"
	apperrors "github.com/vincentrandon/freelance-project-saas/errors"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// extractionSchema is the contract the parser payload must satisfy before it
// becomes a RawExtraction. Amounts arrive as strings to avoid float drift.
const extractionSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["documentType", "customerFields", "tasks", "financials"],
	"properties": {
		"documentId": {"type": "string"},
		"documentType": {"enum": ["invoice", "estimate"]},
		"customerFields": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"$ref": "#/$defs/field"},
				"email": {"$ref": "#/$defs/field"},
				"company": {"$ref": "#/$defs/field"},
				"phone": {"$ref": "#/$defs/field"},
				"address": {"$ref": "#/$defs/field"}
			}
		},
		"projectFields": {
			"type": "object",
			"properties": {
				"name": {"$ref": "#/$defs/field"},
				"description": {"$ref": "#/$defs/field"}
			}
		},
		"tasks": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string"},
					"description": {"type": "string"},
					"hours": {"type": "string"},
					"rate": {"type": "string"},
					"amount": {"type": "string"}
				}
			}
		},
		"financials": {
			"type": "object",
			"required": ["currency"],
			"properties": {
				"subtotal": {"type": "string"},
				"taxRate": {"type": "string"},
				"total": {"type": "string"},
				"currency": {"type": "string"}
			}
		}
	},
	"$defs": {
		"field": {
			"type": "object",
			"required": ["value", "confidence"],
			"properties": {
				"value": {"type": "string"},
				"confidence": {"type": "integer", "minimum": 0, "maximum": 100}
			}
		}
	}
}`

// ExtractionClient calls the parser's extraction endpoint and turns its
// payload into a validated RawExtraction.
type ExtractionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	schema     *jsonschema.Schema
}

// NewExtractionClient compiles the payload schema and configures the HTTP
// client with the extraction timeout.
func NewExtractionClient(cfg config.AIServiceConfig) (*ExtractionClient, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", strings.NewReader(extractionSchema)); err != nil {
		return nil, fmt.Errorf("add extraction schema: %w", err)
	}
	schema, err := compiler.Compile("extraction.json")
	if err != nil {
		return nil, fmt.Errorf("compile extraction schema: %w", err)
	}

	return &ExtractionClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.ExtractionTimeoutSeconds) * time.Second,
		},
		schema: schema,
	}, nil
}

// Extract asks the parser for the structured extraction of one document.
// Every failure mode (transport, non-2xx, schema violation) surfaces as
// ExtractionUnavailable: no preview is ever assembled from a payload this
// method did not accept.
func (c *ExtractionClient) Extract(ctx context.Context, documentID string) (*types.RawExtraction, error) {
	payload, err := json.Marshal(map[string]string{"documentId": documentID})
	if err != nil {
		return nil, apperrors.ExtractionUnavailable(documentID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.ExtractionUnavailable(documentID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ExtractionUnavailable(documentID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ExtractionUnavailable(documentID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.ExtractionUnavailable(documentID,
			fmt.Errorf("extraction endpoint returned %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	if err := c.validate(body); err != nil {
		return nil, apperrors.ExtractionUnavailable(documentID, err)
	}

	raw := &types.RawExtraction{}
	if err := json.Unmarshal(body, raw); err != nil {
		return nil, apperrors.ExtractionUnavailable(documentID, err)
	}
	raw.DocumentID = documentID
	if raw.ExtractedAt.IsZero() {
		raw.ExtractedAt = time.Now().UTC()
	}
	return raw, nil
}

func (c *ExtractionClient) validate(body []byte) error {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if err := c.schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match extraction schema: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
