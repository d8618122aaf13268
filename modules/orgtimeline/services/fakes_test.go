package services

import (
	"context"
	"sync"
	"time"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

type fakeRepo struct {
	mu sync.Mutex

	history     *VersionHistory
	historyErr  error
	snapshot    *VersionHistory
	snapshotErr error
	listCalls   int

	candidates     []version.Candidate
	candidateTotal int
	candidateErr   error
	candidateGate  chan struct{}
	candidateCalls int
	lastFilter     CandidateFilter

	createCode string
	createErr  error
	created    []CreateEntityRequest

	eventResp   *EventResponse
	eventErr    error
	events      []VersionEventRequest
	eventTokens []string

	editToken  string
	editErr    error
	edits      []EditRecordRequest
	editTokens []string
}

func (f *fakeRepo) ListVersions(_ context.Context, _ string) (*VersionHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if f.history == nil {
		return &VersionHistory{}, nil
	}
	out := *f.history
	out.Versions = append([]version.Version(nil), f.history.Versions...)
	return &out, nil
}

func (f *fakeRepo) GetSnapshot(_ context.Context, _ string) (*VersionHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeRepo) ListParentCandidates(_ context.Context, filter CandidateFilter) (*CandidatePage, error) {
	if f.candidateGate != nil {
		<-f.candidateGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidateCalls++
	f.lastFilter = filter
	if f.candidateErr != nil {
		return nil, f.candidateErr
	}
	total := f.candidateTotal
	if total == 0 {
		total = len(f.candidates)
	}
	return &CandidatePage{
		Data:       append([]version.Candidate(nil), f.candidates...),
		Pagination: Pagination{Total: total, Page: 1, PageSize: filter.PageSize},
	}, nil
}

func (f *fakeRepo) CreateEntity(_ context.Context, req CreateEntityRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createCode, nil
}

func (f *fakeRepo) SubmitEvent(_ context.Context, _ string, token string, req VersionEventRequest) (*EventResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, req)
	f.eventTokens = append(f.eventTokens, token)
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	if f.eventResp == nil {
		return &EventResponse{Status: "ok"}, nil
	}
	return f.eventResp, nil
}

func (f *fakeRepo) EditRecord(_ context.Context, _ string, token string, req EditRecordRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, req)
	f.editTokens = append(f.editTokens, token)
	if f.editErr != nil {
		return "", f.editErr
	}
	return f.editToken, nil
}

func (f *fakeRepo) calls() (list, candidates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.candidateCalls
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (CandidateEntry, bool, error) {
	return CandidateEntry{}, false, context.DeadlineExceeded
}

func (failingStore) Set(context.Context, string, CandidateEntry, time.Duration) error {
	return context.DeadlineExceeded
}
