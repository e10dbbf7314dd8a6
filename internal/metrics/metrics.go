// Package metrics exposes Prometheus instrumentation for the ledger core.
// Collectors cover the write paths only (observations, media completions,
// archivals) with careful attention to label cardinality:
//
//   - outcome: "inserted" or "already_present" for observation results
//   - source:  "timeline" or "loose" for how a batch was obtained
//
// All collectors are safe for concurrent use and registered on the default
// registry, so an embedding process can serve them from its own
// promhttp.Handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PostsObserved counts insert-if-absent results by outcome and source.
	// The already_present series doubles as a dedup-hit counter.
	PostsObserved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postvault_posts_observed_total",
			Help: "Total insert-if-absent calls by outcome and batch source.",
		},
		[]string{"outcome", "source"},
	)

	// MediaFetched counts download completions recorded on the active ledger.
	MediaFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postvault_media_fetched_total",
			Help: "Total media-download completions recorded.",
		},
	)

	// PostsArchived counts records moved from the active to the archive ledger.
	PostsArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postvault_posts_archived_total",
			Help: "Total records moved to the archive ledger.",
		},
	)

	// BusyRetries counts mutating operations that exhausted the lock-retry
	// budget and surfaced a busy error to the caller.
	BusyRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postvault_busy_retry_exhausted_total",
			Help: "Total operations that failed after the busy-retry budget.",
		},
	)
)

func init() {
	prometheus.MustRegister(PostsObserved, MediaFetched, PostsArchived, BusyRetries)
}

// Label values for PostsObserved.
const (
	SourceTimeline = "timeline"
	SourceLoose    = "loose"
)
