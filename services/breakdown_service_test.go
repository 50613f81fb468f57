package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/generativelanguage/v1beta"
)

func newBreakdownForTest(t *testing.T, text string, status int) (*BreakdownService, *generativelanguage.GenerateContentRequest) {
	t.Helper()
	var received generativelanguage.GenerateContentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		if status != http.StatusOK {
			http.Error(w, `{"error":{"code":400,"message":"bad request"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []interface{}{map[string]interface{}{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
			}},
		})
	}))
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.GeminiAPIKey = "key"
	cfg.GeminiEndpoint = server.URL + "/"
	s := NewBreakdownService(cfg)
	s.httpClient = server.Client()
	return s, &received
}

func TestBreakdownService_Breakdown(t *testing.T) {
	text := `{"subtasks":[{"title":"Outline","estimatedMinutes":20},{"title":" Draft ","estimatedMinutes":44.6},{"title":"","estimatedMinutes":5}],"suggestedCategory":"Work"}`
	s, received := newBreakdownForTest(t, text, http.StatusOK)

	breakdown, err := s.Breakdown(context.Background(), "Write report", "quarterly numbers")
	require.NoError(t, err)
	assert.Equal(t, []SuggestedSubtask{{Title: "Outline", EstimatedMinutes: 20}, {Title: "Draft", EstimatedMinutes: 45}}, breakdown.Subtasks)
	assert.Equal(t, "Work", breakdown.SuggestedCategory)
	assert.Equal(t, 65, breakdown.TotalMinutes())

	require.Len(t, received.Contents, 1)
	assert.True(t, strings.Contains(received.Contents[0].Parts[0].Text, `"Write report"`))
	assert.Equal(t, "application/json", received.GenerationConfig.ResponseMimeType)
}

func TestBreakdownService_ClampsEstimates(t *testing.T) {
	text := `{"subtasks":[{"title":"Forever","estimatedMinutes":1e300},{"title":"Negative","estimatedMinutes":-12}],"suggestedCategory":""}`
	s, _ := newBreakdownForTest(t, text, http.StatusOK)

	breakdown, err := s.Breakdown(context.Background(), "Big project", "")
	require.NoError(t, err)
	assert.Equal(t, []SuggestedSubtask{
		{Title: "Forever", EstimatedMinutes: maxSubtaskMinutes},
		{Title: "Negative", EstimatedMinutes: 0},
	}, breakdown.Subtasks)
	assert.Equal(t, maxSubtaskMinutes, breakdown.TotalMinutes())
}

func TestBreakdownService_Failures(t *testing.T) {
	s, _ := newBreakdownForTest(t, "", http.StatusBadRequest)
	_, err := s.Breakdown(context.Background(), "Write report", "")
	assert.ErrorIs(t, err, ErrSideChannel)

	s, _ = newBreakdownForTest(t, "not json", http.StatusOK)
	_, err = s.Breakdown(context.Background(), "Write report", "")
	assert.ErrorIs(t, err, ErrSideChannel)

	_, err = s.Breakdown(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	unconfigured := NewBreakdownService(testConfig())
	assert.False(t, unconfigured.Configured())
	_, err = unconfigured.Breakdown(context.Background(), "Write report", "")
	assert.ErrorIs(t, err, ErrBreakdownUnavailable)
}
