package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
	"github.com/jacksonlee411/orgtimeline/pkg/httpapi"
)

func TestDecodeError_TopLevelParentUnavailable(t *testing.T) {
	err := decodeError(http.StatusBadRequest, []byte(`{"code":"TEMPORAL_PARENT_UNAVAILABLE","message":"parent inactive","details":[{"code":"X","context":{"suggestedDate":"2025-08-01"}}]}`))
	require.True(t, services.IsKind(err, services.KindParentUnavailable))
	d, ok := services.SuggestedDate(err)
	require.True(t, ok)
	require.Equal(t, "2025-08-01", d.Format("2006-01-02"))
}

func TestDecodeError_ParentUnavailableWithoutSuggestion(t *testing.T) {
	err := decodeError(http.StatusBadRequest, []byte(`{"code":"TEMPORAL_PARENT_UNAVAILABLE"}`))
	require.True(t, services.IsKind(err, services.KindParentUnavailable))
	_, ok := services.SuggestedDate(err)
	require.False(t, ok)
	require.NotEmpty(t, services.UserMessage(err))
}

func TestDecodeError_PreconditionFailed(t *testing.T) {
	err := decodeError(http.StatusPreconditionFailed, nil)
	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, services.CodeConcurrencyConflict, svcErr.Code)
}

func TestDecodeError_NonJSONBody(t *testing.T) {
	err := decodeError(http.StatusInternalServerError, []byte("<html>oops</html>"))
	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, services.CodeRemoteFailure, svcErr.Code)
	require.Equal(t, "<html>oops</html>", svcErr.Message)

	err = decodeError(http.StatusNotFound, nil)
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "Not Found", svcErr.Message)
}

func TestDecodeError_ReadsEnvelopeWrittenByHTTPAPI(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, httpapi.WriteError(rec, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "",
		httpapi.ErrorDetail{Code: "OTHER", Context: map[string]any{"suggestedDate": "2024-01-01"}},
		httpapi.ErrorDetail{
			Code:    parentUnavailableCode,
			Message: "parent 1000100 inactive",
			Context: map[string]any{"suggestedDate": "2025-08-01"},
		},
	))

	err := decodeError(rec.Code, rec.Body.Bytes())
	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, services.KindParentUnavailable, svcErr.Kind)
	require.Equal(t, "parent 1000100 inactive", svcErr.Message)
	d, ok := services.SuggestedDate(err)
	require.True(t, ok)
	require.Equal(t, "2025-08-01", d.Format("2006-01-02"))
}

func TestDecodeError_EnvelopeCodeAndMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, httpapi.WriteError(rec, http.StatusConflict, "DUPLICATE_DATE", "a version already starts on 2025-01-01"))

	err := decodeError(rec.Code, rec.Body.Bytes())
	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "DUPLICATE_DATE", svcErr.Code)
	require.Equal(t, "a version already starts on 2025-01-01", svcErr.Message)
	require.Equal(t, http.StatusConflict, svcErr.Status)
}
