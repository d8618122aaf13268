package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

const snapshotFallbackMessage = "version history is unavailable; showing the current snapshot only"

// Timeline is the client-side read-through copy of an entity's versions,
// most recent first.
type Timeline struct {
	EntityCode       string            `json:"entityCode" yaml:"entityCode"`
	Versions         []version.Version `json:"versions" yaml:"versions"`
	ConcurrencyToken string            `json:"concurrencyToken,omitempty" yaml:"concurrencyToken,omitempty"`
	FallbackMessage  string            `json:"fallbackMessage,omitempty" yaml:"fallbackMessage,omitempty"`
}

func (t *Timeline) Current() (version.Version, bool) {
	if t == nil {
		return version.Version{}, false
	}
	for _, v := range t.Versions {
		if v.IsCurrent {
			return v, true
		}
	}
	return version.Version{}, false
}

// Focus picks the default selection after a load.
func (t *Timeline) Focus(recordID string) (version.Version, bool) {
	if t == nil {
		return version.Version{}, false
	}
	return version.SelectDefault(t.Versions, recordID)
}

func (t *Timeline) Degraded() bool {
	return t != nil && t.FallbackMessage != ""
}

// DeriveConcurrencyToken builds a weak token from the current (or most
// recent) version for servers that send no ETag.
func DeriveConcurrencyToken(versions []version.Version) string {
	if len(versions) == 0 {
		return ""
	}
	anchor, _ := version.SelectDefault(versions, "")
	if anchor.RecordID == "" {
		return ""
	}
	return fmt.Sprintf(`W/"%s:%d"`, anchor.RecordID, anchor.UpdatedAt.Unix())
}

type TimelineLoader struct {
	source TimelineSource
	clock  clockwork.Clock
}

func NewTimelineLoader(source TimelineSource, clock clockwork.Clock) *TimelineLoader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimelineLoader{source: source, clock: clock}
}

// Load fetches the full history and falls back to the current snapshot when
// the history query fails.
func (l *TimelineLoader) Load(ctx context.Context, entityCode string) (*Timeline, error) {
	entityCode = strings.TrimSpace(entityCode)
	if entityCode == "" {
		return nil, newValidationError(CodeInvalidBody, "entity code is required")
	}

	history, histErr := l.source.ListVersions(ctx, entityCode)
	if histErr == nil && history != nil {
		return l.build(entityCode, history, ""), nil
	}
	if histErr == nil {
		histErr = NewRemoteError(0, CodeInvalidResponse, "empty version history response", nil)
	}
	histErr = normalizeRemoteError(histErr)

	snapshot, snapErr := l.source.GetSnapshot(ctx, entityCode)
	if snapErr == nil && (snapshot == nil || len(snapshot.Versions) == 0) {
		snapErr = NewRemoteError(0, CodeVersionNotFound, fmt.Sprintf("entity %s has no snapshot", entityCode), nil)
	}
	if snapErr != nil {
		return nil, loadFailure(entityCode, histErr, normalizeRemoteError(snapErr))
	}

	loadFallbacks.Inc()
	logWithFields(ctx, logrus.WarnLevel, "orgtimeline.load.fallback", errorFields(histErr, logrus.Fields{
		"entity_code": entityCode,
	}))
	return l.build(entityCode, snapshot, snapshotFallbackMessage), nil
}

func (l *TimelineLoader) build(entityCode string, history *VersionHistory, fallbackMessage string) *Timeline {
	versions := version.Normalize(history.Versions, l.clock.Now())
	token := strings.TrimSpace(history.ConcurrencyToken)
	if token == "" {
		token = DeriveConcurrencyToken(versions)
	}
	return &Timeline{
		EntityCode:       entityCode,
		Versions:         versions,
		ConcurrencyToken: token,
		FallbackMessage:  fallbackMessage,
	}
}

// loadFailure keeps the snapshot error's classification so callers can tell
// a rejected request from an unreachable server.
func loadFailure(entityCode string, histErr, snapErr error) error {
	var svcErr *ServiceError
	if !errors.As(snapErr, &svcErr) {
		return snapErr
	}
	return &ServiceError{
		Kind:    svcErr.Kind,
		Status:  svcErr.Status,
		Code:    svcErr.Code,
		Message: fmt.Sprintf("timeline %s unavailable: %s", entityCode, svcErr.Message),
		Cause:   errors.Join(histErr, snapErr),
	}
}
