package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

// CandidateEntry is an immutable cache value. Expiry replaces it, nothing
// updates it in place.
type CandidateEntry struct {
	Candidates []version.Candidate `json:"candidates"`
	Fallback   bool                `json:"fallback"`
	Truncated  bool                `json:"truncated"`
	ExpiresAt  time.Time           `json:"expiresAt"`
}

type CandidateStore interface {
	Get(ctx context.Context, key string) (CandidateEntry, bool, error)
	Set(ctx context.Context, key string, entry CandidateEntry, ttl time.Duration) error
}

type MemoryCandidateStore struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	entries map[string]CandidateEntry
}

func NewMemoryCandidateStore(clock clockwork.Clock) *MemoryCandidateStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCandidateStore{
		clock:   clock,
		entries: make(map[string]CandidateEntry),
	}
}

func (s *MemoryCandidateStore) Get(_ context.Context, key string) (CandidateEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.clock.Now().Before(e.ExpiresAt) {
		return CandidateEntry{}, false, nil
	}
	return e, true, nil
}

func (s *MemoryCandidateStore) Set(_ context.Context, key string, entry CandidateEntry, _ time.Duration) error {
	if key == "" {
		return nil
	}
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, k)
		}
	}
	entry.Candidates = append([]version.Candidate(nil), entry.Candidates...)
	s.entries[key] = entry
	return nil
}

func (s *MemoryCandidateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type CandidateCacheSettings struct {
	TTL          time.Duration
	PageSize     int
	FallbackRoot version.Candidate
}

// CandidateResult is what a parent selector consumes. Err is set only for
// the caller whose lookup performed the failed fetch; later hits on the
// cached fallback carry no error.
type CandidateResult struct {
	Candidates []version.Candidate
	Fallback   bool
	Truncated  bool
	Err        error
}

func (r CandidateResult) ByCode() map[string]version.Candidate {
	return version.CandidatesByCode(r.Candidates)
}

type ParentCandidateCache struct {
	source   CandidateSource
	store    CandidateStore
	clock    clockwork.Clock
	settings CandidateCacheSettings
	group    singleflight.Group
}

func NewParentCandidateCache(source CandidateSource, store CandidateStore, clock clockwork.Clock, settings CandidateCacheSettings) *ParentCandidateCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if store == nil {
		store = NewMemoryCandidateStore(clock)
	}
	if settings.TTL <= 0 {
		settings.TTL = 5 * time.Minute
	}
	if settings.PageSize <= 0 {
		settings.PageSize = 500
	}
	return &ParentCandidateCache{
		source:   source,
		store:    store,
		clock:    clock,
		settings: settings,
	}
}

func candidateCacheKey(asOf time.Time, excludeCode string, pageSize int) string {
	return fmt.Sprintf("%s|%s|%d", version.FormatDate(asOf), excludeCode, pageSize)
}

type candidateFetch struct {
	entry CandidateEntry
	err   error
}

// GetCandidates returns the parents valid on asOf, excluding excludeCode and
// its descendants. It never fails: a failed fetch yields the fallback root.
func (c *ParentCandidateCache) GetCandidates(ctx context.Context, asOf time.Time, excludeCode string) CandidateResult {
	asOf = version.NormalizeDate(asOf)
	key := candidateCacheKey(asOf, excludeCode, c.settings.PageSize)

	if entry, ok := c.lookup(ctx, key); ok {
		recordCacheRequest(true)
		return resultFromEntry(entry, nil)
	}
	recordCacheRequest(false)

	executed := false
	v, _, _ := c.group.Do(key, func() (any, error) {
		executed = true
		if entry, ok := c.lookup(ctx, key); ok {
			return candidateFetch{entry: entry}, nil
		}
		return c.fetch(context.WithoutCancel(ctx), key, asOf, excludeCode), nil
	})
	res := v.(candidateFetch)
	if !executed {
		return resultFromEntry(res.entry, nil)
	}
	return resultFromEntry(res.entry, res.err)
}

func (c *ParentCandidateCache) lookup(ctx context.Context, key string) (CandidateEntry, bool) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logWithFields(ctx, logrus.WarnLevel, "orgtimeline.candidates.store_get_failed", logrus.Fields{
			"cache_key": key,
			"error":     err.Error(),
		})
		return CandidateEntry{}, false
	}
	return entry, ok
}

func (c *ParentCandidateCache) fetch(ctx context.Context, key string, asOf time.Time, excludeCode string) candidateFetch {
	now := c.clock.Now()
	page, err := c.source.ListParentCandidates(ctx, CandidateFilter{
		AsOf:                 asOf,
		ExcludeCode:          excludeCode,
		ExcludeDescendantsOf: excludeCode,
		Status:               version.StatusActive,
		PageSize:             c.settings.PageSize,
	})

	var out candidateFetch
	if err != nil {
		out.err = normalizeRemoteError(err)
		root := c.settings.FallbackRoot
		if root.EffectiveDate.IsZero() {
			root.EffectiveDate = asOf
		}
		out.entry = CandidateEntry{
			Candidates: []version.Candidate{root},
			Fallback:   true,
			ExpiresAt:  now.Add(c.settings.TTL),
		}
		cacheFallbacks.Inc()
		logWithFields(ctx, logrus.WarnLevel, "orgtimeline.candidates.fallback", errorFields(out.err, logrus.Fields{
			"as_of_date":   version.FormatDate(asOf),
			"exclude_code": excludeCode,
		}))
	} else {
		data := make([]version.Candidate, 0, len(page.Data))
		for _, cand := range page.Data {
			if cand.Code == "" || cand.Code == excludeCode {
				continue
			}
			data = append(data, cand)
		}
		out.entry = CandidateEntry{
			Candidates: data,
			Truncated:  page.Pagination.Total > len(page.Data),
			ExpiresAt:  now.Add(c.settings.TTL),
		}
	}

	if err := c.store.Set(ctx, key, out.entry, c.settings.TTL); err != nil {
		logWithFields(ctx, logrus.WarnLevel, "orgtimeline.candidates.store_set_failed", logrus.Fields{
			"cache_key": key,
			"error":     err.Error(),
		})
	}
	return out
}

func resultFromEntry(entry CandidateEntry, err error) CandidateResult {
	return CandidateResult{
		Candidates: append([]version.Candidate(nil), entry.Candidates...),
		Fallback:   entry.Fallback,
		Truncated:  entry.Truncated,
		Err:        err,
	}
}
