package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/jacksonlee411/orgtimeline/pkg/composables"
	"github.com/jacksonlee411/orgtimeline/pkg/httpapi"
)

func TestWithLogger_PropagatesRequestID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	r := mux.NewRouter()
	r.Use(WithLogger(logger, "X-Request-ID"))
	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, ok := composables.UseLogger(r.Context())
		require.True(t, ok)
		_, _ = io.WriteString(w, composables.UseRequestID(r.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-1", rec.Body.String())
	require.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "request completed", entry.Message)
	require.Equal(t, http.StatusOK, entry.Data["status-code"])
}

func TestWithLogger_GeneratesRequestIDWhenMissing(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := WithLogger(logger, "")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := WithLogger(logger, "X-Request-ID")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL_SERVER_ERROR", body.Code)

	var sawPanic bool
	for _, e := range hook.AllEntries() {
		if e.Message == "panic recovered in request handler" {
			sawPanic = true
		}
	}
	require.True(t, sawPanic)
}
