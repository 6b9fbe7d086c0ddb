package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"iquizu/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 1500, req.GenerationConfig.MaxOutputTokens)
		assert.Equal(t, 40, req.GenerationConfig.TopK)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"1. Review fractions"}]}}]}`))
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL, "gemini-1.5-flash", "secret").Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "1. Review fractions", text)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		noKey  bool
	}{
		{name: "missing key", noKey: true},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			key := "k"
			if tt.noKey {
				key = ""
			}
			_, err := NewClient(srv.URL, "m", key).Generate(context.Background(), "p")
			assert.ErrorIs(t, err, common.ErrServiceUnavailable)
		})
	}
}
