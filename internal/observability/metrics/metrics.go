package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures metric labels shared across instruments.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics exposes hierarchy-engine instruments.
type Metrics struct {
	channelSyncApplied   *prometheus.CounterVec
	channelSyncFailures  *prometheus.CounterVec
	appointmentConflicts prometheus.Counter
	roleRecomputes       *prometheus.CounterVec
	resyncRuns           *prometheus.CounterVec
}

// New registers the hierarchy metrics on the given registerer.
func New(registerer prometheus.Registerer, cfg Config) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "govcomm"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		channelSyncApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "govcomm_channel_sync_applied_total",
			Help:        "Channel subscription changes applied, by operation.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		channelSyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "govcomm_channel_sync_failures_total",
			Help:        "Channel subscription writes that failed and were left for manual resync.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		appointmentConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "govcomm_appointment_conflicts_total",
			Help:        "Concurrent appointment writes that lost the single-current race.",
			ConstLabels: constLabels,
		}),
		roleRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "govcomm_role_recomputes_total",
			Help:        "System role recomputations by resulting role.",
			ConstLabels: constLabels,
		}, []string{"role"}),
		resyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "govcomm_channel_resync_runs_total",
			Help:        "Manual channel membership resync runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}

	collectors := []prometheus.Collector{
		m.channelSyncApplied,
		m.channelSyncFailures,
		m.appointmentConflicts,
		m.roleRecomputes,
		m.resyncRuns,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return m, nil
}

// RecordSyncApplied increments applied subscription changes.
func (m *Metrics) RecordSyncApplied(operation string) {
	if m == nil {
		return
	}
	m.channelSyncApplied.WithLabelValues(normalizeLabel(operation)).Inc()
}

// RecordSyncFailure increments failed subscription writes.
func (m *Metrics) RecordSyncFailure(operation string) {
	if m == nil {
		return
	}
	m.channelSyncFailures.WithLabelValues(normalizeLabel(operation)).Inc()
}

// RecordAppointmentConflict increments the race-loser counter.
func (m *Metrics) RecordAppointmentConflict() {
	if m == nil {
		return
	}
	m.appointmentConflicts.Inc()
}

// RecordRoleRecompute increments role recomputations.
func (m *Metrics) RecordRoleRecompute(role string) {
	if m == nil {
		return
	}
	m.roleRecomputes.WithLabelValues(normalizeLabel(role)).Inc()
}

// RecordResyncRun increments manual resync runs.
func (m *Metrics) RecordResyncRun(outcome string) {
	if m == nil {
		return
	}
	m.resyncRuns.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
