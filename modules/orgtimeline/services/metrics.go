package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgtimeline",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Total number of parent candidate cache lookups broken down by hit/miss.",
	}, []string{"result"})

	cacheFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orgtimeline",
		Subsystem: "cache",
		Name:      "fallbacks_total",
		Help:      "Total number of failed candidate fetches replaced by the fallback root.",
	})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgtimeline",
		Name:      "mutations_total",
		Help:      "Total number of timeline mutations broken down by operation and outcome.",
	}, []string{"operation", "outcome"})

	loadFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orgtimeline",
		Subsystem: "load",
		Name:      "fallbacks_total",
		Help:      "Total number of timeline loads served from the snapshot fallback.",
	})
)

func recordCacheRequest(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.WithLabelValues(result).Inc()
}

func recordMutation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			outcome = string(svcErr.Kind)
		}
	}
	mutations.WithLabelValues(operation, outcome).Inc()
}
