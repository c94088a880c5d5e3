package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/algorithms", nil)

	RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRespondWithError(t *testing.T) {
	t.Parallel()

	t.Run("includes trace ID when present in context", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		ctx := SetTraceID(r.Context())
		r = r.WithContext(ctx)

		w := httptest.NewRecorder()
		RespondWithError(w, r, http.StatusNotFound, "Run not found")

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Run not found", resp.Error)
		assert.Equal(t, GetTraceID(ctx), resp.TraceID)
	})

	t.Run("omits trace ID when absent", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		w := httptest.NewRecorder()
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")

		var raw map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		_, hasTrace := raw["trace_id"]
		assert.False(t, hasTrace)
	})
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	r = r.WithContext(SetTraceID(r.Context()))
	w := httptest.NewRecorder()

	internal := errors.New("pq: duplicate key value violates unique constraint")
	RespondWithErrorAndLog(w, r, http.StatusConflict, "Email already exists", internal)

	assert.Equal(t, http.StatusConflict, w.Code)

	// The raw error must never reach the client.
	assert.NotContains(t, w.Body.String(), "pq:")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Email already exists", resp.Error)
	assert.NotEmpty(t, resp.TraceID)
}

func TestTraceIDGeneration(t *testing.T) {
	t.Parallel()

	t.Run("trace IDs are unique hex strings", func(t *testing.T) {
		t.Parallel()
		ctxA := SetTraceID(context.Background())
		ctxB := SetTraceID(context.Background())

		a, b := GetTraceID(ctxA), GetTraceID(ctxB)
		assert.Len(t, a, TraceIDLength*2)
		assert.Len(t, b, TraceIDLength*2)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty when unset", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, GetTraceID(context.Background()))
	})
}
