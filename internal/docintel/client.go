// Package docintel wraps the external document/fraud scoring collaborator.
// The engine treats it as an opaque scored check: input is a document
// reference plus claim metadata, output is a confidence score and structured
// findings. When no API key is configured the service runs with fraud and
// tampering detection disabled (see the capability probe).
package docintel

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Request carries the document reference and the claim metadata the scorer
// cross-checks it against.
type Request struct {
	DocumentRef string
	GrantorName string
	Lat         float64
	Lng         float64
}

// Findings is the structured result of document analysis.
type Findings struct {
	FraudScore        float64           `json:"fraud_score"`
	TamperingDetected bool              `json:"tampering_detected"`
	ExtractedFields   map[string]string `json:"extracted_fields,omitempty"`
	Notes             []string          `json:"notes,omitempty"`
}

// Analysis is the scored outcome handed to the document agent.
type Analysis struct {
	Score    float64
	Findings Findings
}

// Analyzer is the narrow interface the document agent consumes.
type Analyzer interface {
	// Enabled reports whether the collaborator is configured.
	Enabled() bool
	Analyze(ctx context.Context, req Request) (*Analysis, error)
}

// Config configures the OpenAI-compatible scoring backend.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client scores documents through an OpenAI-compatible chat completion API.
type Client struct {
	client *openai.Client
	model  string
}

// New builds the analyzer. A missing API key yields a disabled client rather
// than an error so the pipeline stays runnable in development.
func New(cfg Config) *Client {
	if cfg.APIKey == "" {
		return &Client{}
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

const systemPrompt = `You are a land title document examiner. Given a document
reference and claim metadata, assess authenticity and consistency. Respond
with JSON only: {"confidence": <0..1>, "fraud_score": <0..1>,
"tampering_detected": <bool>, "extracted_fields": {..}, "notes": [..]}.`

type wireResult struct {
	Confidence        float64           `json:"confidence"`
	FraudScore        float64           `json:"fraud_score"`
	TamperingDetected bool              `json:"tampering_detected"`
	ExtractedFields   map[string]string `json:"extracted_fields"`
	Notes             []string          `json:"notes"`
}

// Analyze scores the document. Callers should treat any error as a failed
// check, not a fatal pipeline condition.
func (c *Client) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("document intelligence not configured")
	}

	userPrompt := fmt.Sprintf(
		"Document reference: %s\nGrantor: %s\nClaim location: (%f, %f)",
		req.DocumentRef, req.GrantorName, req.Lat, req.Lng,
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("document analysis request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("document analysis returned no choices")
	}

	var result wireResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("parse document analysis response: %w", err)
	}

	return &Analysis{
		Score: clamp01(result.Confidence),
		Findings: Findings{
			FraudScore:        clamp01(result.FraudScore),
			TamperingDetected: result.TamperingDetected,
			ExtractedFields:   result.ExtractedFields,
			Notes:             result.Notes,
		},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
