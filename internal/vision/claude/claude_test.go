package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/invoicescan/internal/vision"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type   string `json:"type"`
			Text   string `json:"text"`
			Source *struct {
				Type      string `json:"type"`
				MediaType string `json:"media_type"`
				Data      string `json:"data"`
			} `json:"source"`
		} `json:"content"`
	} `json:"messages"`
}

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *ClaudeAnalyzer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClaudeAnalyzer("sk-test", "claude-sonnet-4-5", anthropic.WithBaseURL(server.URL+"/v1"))
}

func TestClaudeAnalyze(t *testing.T) {
	var got capturedRequest
	var apiKey string
	analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4-5",
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "```json\n{\"supplier\":\"Acme\"}\n```"},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	text, err := analyzer.Analyze(context.Background(), []vision.Image{
		{Data: []byte{0xFF, 0xD8}, MimeType: "image/jpeg"},
		{Data: []byte{0x89, 0x50}, MimeType: "image/png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "```json\n{\"supplier\":\"Acme\"}\n```", text)

	assert.Equal(t, "sk-test", apiKey)
	assert.Equal(t, "claude-sonnet-4-5", got.Model)
	require.Len(t, got.Messages, 1)
	content := got.Messages[0].Content
	require.Len(t, content, 3)
	assert.Equal(t, "image", content[0].Type)
	assert.Equal(t, "image/jpeg", content[0].Source.MediaType)
	assert.Equal(t, "/9g=", content[0].Source.Data)
	assert.Equal(t, "image/png", content[1].Source.MediaType)
	assert.Equal(t, "text", content[2].Type)
	assert.Equal(t, vision.ExtractionPrompt, content[2].Text)
}

func TestClaudeAnalyzeAPIError(t *testing.T) {
	analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := analyzer.Analyze(context.Background(), []vision.Image{{Data: []byte{0xFF, 0xD8}, MimeType: "image/jpeg"}})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sk-test")
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/webp", normaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", normaliseMIME("image/jpeg"))
	assert.Equal(t, "image/jpeg", normaliseMIME("application/octet-stream"))
}
