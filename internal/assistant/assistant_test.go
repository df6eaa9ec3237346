package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/analytics"
	apperrors "github.com/geoshield/geoshield/internal/common/errors"
)

func testSnapshot() *analytics.Snapshot {
	s := analytics.NewSnapshot()
	s.TotalAttempts = 10
	s.Low = 6
	s.Medium = 3
	s.High = 1
	s.NotMeCount = 2
	s.SecurityScore = 6.25
	s.CountryStats["Brazil"] = analytics.CountryStat{Total: 5, Low: 3, Medium: 2}
	s.CountryStats["France"] = analytics.CountryStat{Total: 3, Low: 3}
	s.CountryStats["Russia"] = analytics.CountryStat{Total: 2, High: 1, Medium: 1}
	return s
}

func TestOfflineGeneratorSummary(t *testing.T) {
	g := NewOfflineGenerator()
	assert.Equal(t, "offline", g.Mode())

	answer, err := g.Answer(context.Background(), "how are we doing?", testSnapshot())
	require.NoError(t, err)

	assert.Contains(t, answer, "10 login attempts")
	assert.Contains(t, answer, "1 high, 3 medium, 6 low")
	assert.Contains(t, answer, "2 attempts were disowned")
	assert.Contains(t, answer, "6.2/10")
	assert.Contains(t, answer, "Brazil (5), France (3), Russia (2)")
	assert.Contains(t, answer, "degraded")
}

func TestOfflineGeneratorEmptySnapshot(t *testing.T) {
	g := NewOfflineGenerator()

	answer, err := g.Answer(context.Background(), "anything?", analytics.NewSnapshot())
	require.NoError(t, err)
	assert.Contains(t, answer, "0 login attempts")
	assert.Contains(t, answer, "healthy")
}

func TestOpenAIGeneratorAnswer(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "All quiet."}},
			},
		})
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
	}, zap.NewNop())
	assert.Equal(t, "live", g.Mode())

	answer, err := g.Answer(context.Background(), "anything unusual?", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "All quiet.", answer)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "anything unusual?")
	assert.Contains(t, gotReq.Messages[1].Content, `"totalAttempts":10`)
}

func TestOpenAIGeneratorMissingKey(t *testing.T) {
	g := NewOpenAIGenerator(OpenAIConfig{}, zap.NewNop())

	_, err := g.Answer(context.Background(), "q", testSnapshot())
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrUpstreamUnavailable))
}

func TestOpenAIGeneratorUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL}, zap.NewNop())

	_, err := g.Answer(context.Background(), "q", testSnapshot())
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrUpstreamFailure))
}

func TestOpenAIGeneratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL}, zap.NewNop())

	_, err := g.Answer(context.Background(), "q", testSnapshot())
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrUpstreamFailure))
}
