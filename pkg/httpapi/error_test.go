package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError_EncodesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteError(rec, http.StatusUnprocessableEntity, "TEMPORAL_PARENT_UNAVAILABLE", "parent inactive", ErrorDetail{
		Code:    "TEMPORAL_PARENT_UNAVAILABLE",
		Message: "parent inactive at 2025-01-01",
		Context: map[string]any{"suggestedDate": "2025-02-01"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "TEMPORAL_PARENT_UNAVAILABLE", env.Code)
	require.Len(t, env.Details, 1)
	require.Equal(t, "2025-02-01", env.Details[0].Context["suggestedDate"])
}

func TestWriteJSON_NilWriter(t *testing.T) {
	require.NoError(t, WriteJSON(nil, http.StatusOK, map[string]string{"ok": "1"}))
}
