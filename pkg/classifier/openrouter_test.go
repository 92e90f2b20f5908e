package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T, handler http.HandlerFunc) *OpenRouterClassifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenRouterClassifier(&OpenRouterConfig{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: server.URL,
	})
}

func chatReply(content string) string {
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
	raw, _ := json.Marshal(reply)
	return string(raw)
}

func TestAnalyzeImageParsesVerdict(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req chatRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatReply(`{"is_emergency":true,"severity":"high","analysis":"multi-vehicle collision","recommended_ambulance":"ALS"}`))
	})

	result, err := c.AnalyzeImage(context.Background(), "aGVsbG8=")
	require.NoError(t, err)
	assert.True(t, result.IsEmergency)
	assert.Equal(t, SeverityHigh, result.Severity)
	assert.Equal(t, RecommendALS, result.RecommendedAmbulance)
	assert.False(t, result.NonEmergency())
}

func TestAnalyzeImageWrapsRawBase64(t *testing.T) {
	var seenURL string
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		json.Unmarshal(body, &req)
		var parts []contentPart
		json.Unmarshal(req.Messages[1].Content, &parts)
		for _, part := range parts {
			if part.ImageURL != nil {
				seenURL = part.ImageURL.URL
			}
		}
		io.WriteString(w, chatReply(`{"is_emergency":false,"severity":"none","analysis":"","recommended_ambulance":"none"}`))
	})

	_, err := c.AnalyzeImage(context.Background(), "aGVsbG8=")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(seenURL, "data:image/jpeg;base64,"))

	_, err = c.AnalyzeImage(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", seenURL)
}

func TestAnalyzeImageUpstreamError(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.AnalyzeImage(context.Background(), "aGVsbG8=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnalyzeImageMalformedVerdict(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatReply("I cannot tell from this image."))
	})

	_, err := c.AnalyzeImage(context.Background(), "aGVsbG8=")
	require.Error(t, err)
}

func TestAnalyzeImageNoChoices(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	})

	_, err := c.AnalyzeImage(context.Background(), "aGVsbG8=")
	require.Error(t, err)
}

func TestAnalyzeImageMissingAPIKey(t *testing.T) {
	c := NewOpenRouterClassifier(&OpenRouterConfig{})
	_, err := c.AnalyzeImage(context.Background(), "aGVsbG8=")
	require.Error(t, err)
}

func TestNonEmergency(t *testing.T) {
	r := &Result{IsEmergency: false, Severity: SeverityNone}
	assert.True(t, r.NonEmergency())

	// Uncertain verdicts still dispatch.
	r = &Result{IsEmergency: false, Severity: SeverityLow}
	assert.False(t, r.NonEmergency())
}
