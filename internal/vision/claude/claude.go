package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/invoicescan/internal/vision"
)

// maxTokens leaves room for invoices with a few dozen line items.
const maxTokens = 4096

type ClaudeAnalyzer struct {
	apiKey string
	model  string
	client *anthropic.Client
}

func NewClaudeAnalyzer(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeAnalyzer {
	return &ClaudeAnalyzer{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(apiKey, opts...),
	}
}

// buildMessages puts every image first and the instruction last, as one user turn.
func buildMessages(images []vision.Image) []anthropic.Message {
	content := make([]anthropic.MessageContent, 0, len(images)+1)
	for _, img := range images {
		content = append(content, anthropic.NewImageMessageContent(
			anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				normaliseMIME(img.MimeType),
				base64.StdEncoding.EncodeToString(img.Data),
			),
		))
	}
	content = append(content, anthropic.NewTextMessageContent(vision.ExtractionPrompt))

	return []anthropic.Message{{Role: anthropic.RoleUser, Content: content}}
}

func (a *ClaudeAnalyzer) Analyze(ctx context.Context, images []vision.Image) (string, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(images),
	})
	if err != nil {
		return "", vision.Redact(fmt.Errorf("failed to call claude: %w", err), a.apiKey)
	}

	var text strings.Builder
	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			text.WriteString(blk.GetText())
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}

	return text.String(), nil
}

// normaliseMIME maps MIME types to the values the Anthropic API accepts.
// Callers convert anything else to PNG before reaching this layer.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
