package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
	"github.com/jacksonlee411/orgtimeline/pkg/httpapi"
)

const (
	parentUnavailableCode = "TEMPORAL_PARENT_UNAVAILABLE"
	maxRawMessage         = 200
)

// decodeError turns a non-2xx body into a ServiceError. The parent
// unavailable rejection may arrive as the top-level code or as a detail.
func decodeError(status int, body []byte) error {
	var env httpapi.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		env = httpapi.ErrorEnvelope{}
	}
	message := strings.TrimSpace(env.Message)
	code := strings.TrimSpace(env.Code)

	detail, found := parentUnavailableDetail(env.Details)
	if code == parentUnavailableCode || found {
		if message == "" {
			message = strings.TrimSpace(detail.Message)
		}
		if message == "" {
			message = "the selected parent is not available on the requested date"
		}
		suggestedRaw := contextString(detail, "suggestedDate")
		if suggestedRaw == "" && len(env.Details) > 0 {
			suggestedRaw = contextString(env.Details[0], "suggestedDate")
		}
		if d, err := version.ParseDate(suggestedRaw); err == nil {
			return services.NewParentUnavailableError(status, message, &d)
		}
		return services.NewParentUnavailableError(status, message, nil)
	}

	if status == http.StatusPreconditionFailed && code == "" {
		code = services.CodeConcurrencyConflict
		if message == "" {
			message = "the timeline changed since it was loaded; reload and retry"
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
		if len(message) > maxRawMessage {
			message = message[:maxRawMessage] + "..."
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return services.NewRemoteError(status, code, message, nil)
}

func parentUnavailableDetail(details []httpapi.ErrorDetail) (httpapi.ErrorDetail, bool) {
	for _, d := range details {
		if strings.TrimSpace(d.Code) == parentUnavailableCode {
			return d, true
		}
	}
	return httpapi.ErrorDetail{}, false
}

func contextString(d httpapi.ErrorDetail, key string) string {
	s, _ := d.Context[key].(string)
	return strings.TrimSpace(s)
}
