package orgtimeline

import (
	"github.com/jonboulle/clockwork"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/infrastructure/api"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/infrastructure/cache"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
	"github.com/jacksonlee411/orgtimeline/pkg/configuration"
	"github.com/jacksonlee411/orgtimeline/pkg/eventbus"
)

type Options struct {
	Clock     clockwork.Clock
	Publisher eventbus.EventBus
}

// Module holds the timeline services built from one configuration.
type Module struct {
	Client       *api.Client
	Loader       *services.TimelineLoader
	Candidates   *services.ParentCandidateCache
	Orchestrator *services.MutationOrchestrator
	Publisher    eventbus.EventBus
	Clock        clockwork.Clock

	closers []func() error
}

func NewModule(conf *configuration.Configuration, opts Options) (*Module, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = eventbus.NewEventPublisher(conf.Logger())
	}

	client, err := api.NewClient(api.Options{
		BaseURL:         conf.API.BaseURL,
		Authorization:   conf.API.Authorization,
		Timeout:         conf.API.Timeout,
		RetryMax:        conf.API.RetryMax,
		RequestIDHeader: conf.RequestIDHeader,
		Logger:          conf.Logger(),
	})
	if err != nil {
		return nil, err
	}

	m := &Module{
		Client:    client,
		Publisher: publisher,
		Clock:     clock,
	}

	var store services.CandidateStore
	switch conf.CandidateCache.Storage {
	case "redis":
		redisStore, err := cache.Open(conf.CandidateCache.RedisURL, clock)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, redisStore.Close)
		store = redisStore
	default:
		store = services.NewMemoryCandidateStore(clock)
	}

	m.Loader = services.NewTimelineLoader(client, clock)
	m.Candidates = services.NewParentCandidateCache(client, store, clock, services.CandidateCacheSettings{
		TTL:      conf.CandidateCache.TTL,
		PageSize: conf.CandidateCache.PageSize,
		FallbackRoot: version.Candidate{
			Code:     conf.CandidateCache.FallbackRootCode,
			Name:     conf.CandidateCache.FallbackRootName,
			UnitType: "ORGANIZATION_UNIT",
			Level:    1,
		},
	})
	m.Orchestrator = services.NewMutationOrchestrator(client, m.Loader, m.Candidates, publisher, clock)
	return m, nil
}

func (m *Module) Name() string {
	return "orgtimeline"
}

func (m *Module) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
