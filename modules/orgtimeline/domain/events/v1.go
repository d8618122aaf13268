package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicTimelineMutatedV1 = "orgtimeline.mutated.v1"
	EventVersionV1         = 1
)

type Operation string

const (
	OperationCreate     Operation = "create"
	OperationInsert     Operation = "insert"
	OperationEdit       Operation = "edit"
	OperationDeactivate Operation = "deactivate"
)

// TimelineMutatedV1 is published after a mutation is confirmed by the remote store.
type TimelineMutatedV1 struct {
	EventID          uuid.UUID `json:"event_id"`
	EventVersion     int       `json:"event_version"`
	RequestID        string    `json:"request_id"`
	Operation        Operation `json:"operation"`
	EntityCode       string    `json:"entity_code"`
	RecordID         string    `json:"record_id,omitempty"`
	EffectiveDate    time.Time `json:"effective_date"`
	ConcurrencyToken string    `json:"concurrency_token,omitempty"`
	Reloaded         bool      `json:"reloaded"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewTimelineMutatedV1(requestID string, op Operation, entityCode, recordID string, effectiveDate time.Time, token string, reloaded bool, now time.Time) TimelineMutatedV1 {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return TimelineMutatedV1{
		EventID:          uuid.New(),
		EventVersion:     EventVersionV1,
		RequestID:        requestID,
		Operation:        op,
		EntityCode:       entityCode,
		RecordID:         recordID,
		EffectiveDate:    effectiveDate.UTC(),
		ConcurrencyToken: token,
		Reloaded:         reloaded,
		OccurredAt:       now.UTC(),
	}
}
