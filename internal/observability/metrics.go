package observability

import "sync"

// Counter names tracked by the engine.
const (
	MetricInboundMessages     = "inbound_messages"
	MetricTicketsCreated      = "tickets_created"
	MetricTicketsClaimed      = "tickets_claimed"
	MetricTicketsClosed       = "tickets_closed"
	MetricClaimRaceLost       = "claim_race_lost"
	MetricRelaysToAgent       = "relays_to_agent"
	MetricRelaysToClient      = "relays_to_client"
	MetricInactivityTimeouts  = "inactivity_timeouts"
	MetricClassifierFallbacks = "classifier_fallbacks"
	MetricRequestErrors       = "request_errors"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]int64)}
}

// Inc increments the named counter.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
