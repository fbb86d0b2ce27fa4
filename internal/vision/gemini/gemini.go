package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vbonduro/invoicescan/internal/vision"
)

const defaultModel = "gemini-2.5-flash"

// GeminiAnalyzer sends invoice pages to Google Gemini.
type GeminiAnalyzer struct {
	apiKey string
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, vision.Redact(fmt.Errorf("failed to create gemini client: %w", err), apiKey)
	}

	return &GeminiAnalyzer{
		apiKey: apiKey,
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, images []vision.Image) (string, error) {
	resp, err := g.model.GenerateContent(ctx, buildParts(images)...)
	if err != nil {
		return "", vision.Redact(fmt.Errorf("failed to generate content: %w", err), g.apiKey)
	}

	return responseText(resp)
}

func (g *GeminiAnalyzer) Close() error {
	return g.client.Close()
}

// buildParts attaches every image before the prompt.
// genai.ImageData takes the format suffix ("png"), not the full MIME type.
func buildParts(images []vision.Image) []genai.Part {
	parts := make([]genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.ImageData(imageFormat(img.MimeType), img.Data))
	}
	return append(parts, genai.Text(vision.ExtractionPrompt))
}

func imageFormat(mimeType string) string {
	format, ok := strings.CutPrefix(mimeType, "image/")
	if !ok || format == "" {
		return "jpeg"
	}
	return format
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return text.String(), nil
}
