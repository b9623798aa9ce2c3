package provider_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/errors"
	"github.com/chatrelay/chatrelay/internal/mylog"
	"github.com/chatrelay/chatrelay/provider"
)

func newGeminiClient(baseUrl, apiKey string) *provider.GeminiClient {
	return provider.NewGeminiClient(
		mylog.NewLogger("error", "json"),
		&config.GeminiConfig{
			APIKey:                apiKey,
			BaseUrl:               baseUrl,
			RequestTimeoutSeconds: 5,
		},
		&config.ModelConfig{
			VisionModel:         "gemini-2.0-flash",
			VisionModelDetailed: "gemini-1.5-pro",
		},
	)
}

func TestGeminiMissingCredentialSoftFails(t *testing.T) {
	client := newGeminiClient("http://127.0.0.1:0", "")

	reply, err := client.Invoke(t.Context(), provider.Turn{Text: "what is this", Image: "aGVsbG8="}, provider.TierDefault, 100)
	require.NoError(t, err)
	require.True(t, reply.ConfigMissing)
	require.Contains(t, reply.Text, "GEMINI_API_KEY")
}

func TestGeminiInvoke(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "a red bicycle"}}}},
			},
		})
	}))
	defer ts.Close()

	client := newGeminiClient(ts.URL, "test-key")

	reply, err := client.Invoke(
		t.Context(),
		provider.Turn{Text: "what is in this picture?", Image: "data:image/png;base64,iVBORw0KG"},
		provider.TierDefault,
		1500,
	)
	require.NoError(t, err)
	require.False(t, reply.ConfigMissing)
	require.Equal(t, "a red bicycle", reply.Text)
	require.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)

	contents := gotBody["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Equal(t, "what is in this picture?", parts[0].(map[string]any)["text"])
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	require.Equal(t, "image/png", inline["mime_type"])
	require.Equal(t, "iVBORw0KG", inline["data"])
}

func TestGeminiDetailedTierUsesDetailedModel(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "ok"}}}},
			},
		})
	}))
	defer ts.Close()

	client := newGeminiClient(ts.URL, "test-key")

	_, err := client.Invoke(t.Context(), provider.Turn{Text: "read the text", Image: "aGVsbG8="}, provider.TierDetailed, 2048)
	require.NoError(t, err)
	require.Equal(t, "/models/gemini-1.5-pro:generateContent", gotPath)
}

func TestGeminiUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer ts.Close()

	client := newGeminiClient(ts.URL, "bad-key")

	_, err := client.Invoke(t.Context(), provider.Turn{Text: "hi", Image: "aGVsbG8="}, provider.TierDefault, 100)
	require.ErrorIs(t, err, errors.ErrUpstream)
	require.Contains(t, err.Error(), "API key not valid")
}

func TestGeminiInvalidResponseShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer ts.Close()

	client := newGeminiClient(ts.URL, "test-key")

	_, err := client.Invoke(t.Context(), provider.Turn{Text: "hi", Image: "aGVsbG8="}, provider.TierDefault, 100)
	require.ErrorIs(t, err, errors.ErrInvalidResponseShape)
}
