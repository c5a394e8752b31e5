package store

import "github.com/prometheus/client_golang/prometheus"

// Cache layers used as the "layer" label.
const (
	layerDetail   = "detail"
	layerList     = "list"
	layerPrefetch = "prefetch"
)

var (
	// cacheLookups counts how each read was satisfied: hit, join (attached to
	// an in-flight call), miss (new backend call), or refresh (forced).
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_cache_lookups_total",
			Help: "Cache lookups by entity kind, cache layer and outcome.",
		},
		[]string{"kind", "layer", "outcome"},
	)

	// staleResponses counts responses discarded by a sequence or relevance check.
	staleResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_stale_responses_total",
			Help: "Backend responses dropped because a newer request superseded them.",
		},
		[]string{"kind", "layer"},
	)

	// actionsTotal counts tracked mutations by outcome (ok, failed, coalesced).
	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_actions_total",
			Help: "Tracked admin actions by entity kind, action and outcome.",
		},
		[]string{"kind", "action", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, staleResponses, actionsTotal)
}
