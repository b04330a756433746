package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for recognition deliveries.
const (
	RecognitionApplied = "applied"
	RecognitionStale   = "stale"
	RecognitionEmpty   = "empty"
	RecognitionFailed  = "failed"
)

// DomainMetrics holds counters for cart, comparison and recognition activity.
// All methods are safe on a nil receiver.
type DomainMetrics struct {
	EntriesAdded   *prometheus.CounterVec
	RankRequests   *prometheus.CounterVec
	DraftsRanked   prometheus.Counter
	DraftsExcluded prometheus.Counter
	Recognitions   *prometheus.CounterVec
}

// NewDomainMetrics registers domain collectors under namespace.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &DomainMetrics{
		EntriesAdded: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_entries_added_total",
			Help:      "Cart entry submissions by outcome.",
		}, []string{"result"})),
		RankRequests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_requests_total",
			Help:      "Ranking requests by source.",
		}, []string{"source"})),
		DraftsRanked: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_ranked_total",
			Help:      "Drafts that produced a unit price.",
		})),
		DraftsExcluded: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_excluded_total",
			Help:      "Drafts left out of a ranking because they could not be normalized.",
		})),
		Recognitions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Recognition deliveries by outcome.",
		}, []string{"result"})),
	}
}

// EntryAdded counts an entry submission; ok is false when input was rejected.
func (m *DomainMetrics) EntryAdded(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "invalid"
	}
	m.EntriesAdded.WithLabelValues(result).Inc()
}

// Ranked records one ranking pass over total drafts producing ranked results.
func (m *DomainMetrics) Ranked(source string, total, ranked int) {
	if m == nil {
		return
	}
	m.RankRequests.WithLabelValues(source).Inc()
	m.DraftsRanked.Add(float64(ranked))
	if excluded := total - ranked; excluded > 0 {
		m.DraftsExcluded.Add(float64(excluded))
	}
}

// Recognition counts a recognition outcome.
func (m *DomainMetrics) Recognition(result string) {
	if m == nil {
		return
	}
	m.Recognitions.WithLabelValues(result).Inc()
}
