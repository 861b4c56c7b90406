// Package gemini is a thin proxy to the Gemini text-generation endpoint
// using the official google.golang.org/genai SDK.
//
// The call is treated as opaque request/response: conversation history
// goes in as a content list, text comes out. Persistence of that history
// is the conversation package's job, not this one's.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// Content is one turn of conversation history on the wire, mirroring the
// genai JSON shape so front-end payloads pass through unchanged.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single text fragment of a Content.
type Part struct {
	Text string `json:"text"`
}

// Client wraps a genai client bound to one model.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client. An empty model selects DefaultModel.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Chat sends the conversation history to the model and returns the
// generated text. An empty systemInstruction sends none.
func (c *Client) Chat(ctx context.Context, contents []Content, systemInstruction string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if systemInstruction != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, toGenaiContents(contents), cfg)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return resp.Text(), nil
}

func toGenaiContents(contents []Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		parts := make([]*genai.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
		out = append(out, &genai.Content{Role: c.Role, Parts: parts})
	}
	return out
}
