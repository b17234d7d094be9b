package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

const maxExtractionOutputTokens = 4096

// VertexClient holds the pre-configured extraction model.
type VertexClient struct {
	// ExtractorModel is tuned for structured field extraction: low
	// temperature and a bounded output size.
	ExtractorModel *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a client with the extraction model configured.
// The temperature is fixed at construction so every invocation in the
// process produces comparable output.
func NewVertexClient(ctx context.Context, projectID, region, modelID string, temperature float32) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelID == "" {
		return nil, fmt.Errorf("NewVertexClient: modelID cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extractorModel := baseClient.GenerativeModel(modelID)
	extractorModel.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: genai.Ptr[int32](maxExtractionOutputTokens),
	}
	extractorModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		ExtractorModel: extractorModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
