package services

import (
	"context"
	"time"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

// TimelineRepository is the remote store of effective-dated org versions.
type TimelineRepository interface {
	TimelineSource
	CandidateSource

	CreateEntity(ctx context.Context, req CreateEntityRequest) (string, error)
	SubmitEvent(ctx context.Context, entityCode, concurrencyToken string, req VersionEventRequest) (*EventResponse, error)
	EditRecord(ctx context.Context, entityCode, concurrencyToken string, req EditRecordRequest) (string, error)
}

type TimelineSource interface {
	ListVersions(ctx context.Context, entityCode string) (*VersionHistory, error)
	GetSnapshot(ctx context.Context, entityCode string) (*VersionHistory, error)
}

type CandidateSource interface {
	ListParentCandidates(ctx context.Context, filter CandidateFilter) (*CandidatePage, error)
}

type VersionHistory struct {
	Versions         []version.Version
	ConcurrencyToken string
}

type CandidateFilter struct {
	AsOf                 time.Time
	ExcludeCode          string
	ExcludeDescendantsOf string
	Status               version.Status
	PageSize             int
}

type Pagination struct {
	Total    int
	Page     int
	PageSize int
}

type CandidatePage struct {
	Data       []version.Candidate
	Pagination Pagination
}

type CreateEntityRequest struct {
	Name            string
	UnitType        string
	Description     string
	ParentCode      string
	EffectiveDate   time.Time
	OperationReason string
}

type EventType string

const (
	EventUpdate      EventType = "UPDATE"
	EventRestructure EventType = "RESTRUCTURE"
	EventDeactivate  EventType = "DEACTIVATE"
)

type VersionEventRequest struct {
	EventType     EventType
	RecordID      string
	EffectiveDate time.Time
	ChangeData    map[string]any
	ChangeReason  string
}

// EventResponse carries the updated timeline when the server returns one.
// A nil Timeline means the caller must reload.
type EventResponse struct {
	Status           string
	Timeline         []version.Version
	ConcurrencyToken string
}

type EditRecordRequest struct {
	RecordID        string
	Name            string
	UnitType        string
	LifecycleStatus version.LifecycleStatus
	Description     string
	EffectiveDate   time.Time
	ParentCode      string
	ChangeReason    string
	OperationReason string
}
