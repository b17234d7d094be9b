package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/documentingest/internal/gcp"
)

// VertexExtractor runs document-understanding calls against the
// pre-configured Vertex AI extraction model.
type VertexExtractor struct {
	vertexClient *gcp.VertexClient
}

// NewVertexExtractor wraps an initialized Vertex client.
func NewVertexExtractor(client *gcp.VertexClient) *VertexExtractor {
	return &VertexExtractor{vertexClient: client}
}

// Extract sends the document inline with the rendered prompt and
// returns the parsed extraction properties. The call is synchronous
// and is not retried; transport failures and undecodable completions
// both surface as errors to the caller.
func (e *VertexExtractor) Extract(ctx context.Context, prompt string, content []byte, mediaType string) (map[string]any, error) {
	documentPart := genai.Blob{
		MIMEType: mediaType,
		Data:     content,
	}

	resp, err := e.vertexClient.ExtractorModel.GenerateContent(ctx, documentPart, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to invoke extraction service: %w", err)
	}

	completion := collectText(resp)
	if completion == "" {
		return nil, fmt.Errorf("failed to decode model response: completion contained no text")
	}

	properties, err := ParseModelJSON(completion)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}
	return properties, nil
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var builder strings.Builder
	var textParts int
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			builder.WriteString(string(txt))
			textParts++
		}
	}
	if textParts > 1 {
		slog.Warn("Model response contained multiple text parts; they have been concatenated.", "parts", textParts)
	}
	return strings.TrimSpace(builder.String())
}
