package bus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one bus instance. Attach it
// via WithMetrics; a nil *Metrics disables collection entirely.
type Metrics struct {
	mu sync.Mutex

	emittedTotal        *prometheus.CounterVec
	handlerErrorsTotal  *prometheus.CounterVec
	forwardedTotal      *prometheus.CounterVec
	receivedTotal       *prometheus.CounterVec
	subscriptionsActive prometheus.Gauge
	emitDuration        *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newBusCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crossbus",
			Subsystem: "bus",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewMetrics creates the collectors. Pass nil to use the default registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer:         registerer,
		emittedTotal:       newBusCounterVec("events_emitted_total", "Total number of events emitted, by type and source", []string{"event_type", "source"}),
		handlerErrorsTotal: newBusCounterVec("handler_errors_total", "Total number of handler invocations that failed", []string{"event_type"}),
		forwardedTotal:     newBusCounterVec("events_forwarded_total", "Total number of envelopes forwarded across the bridge", []string{"event_type"}),
		receivedTotal:      newBusCounterVec("events_received_total", "Total number of envelopes received from the bridge", []string{"event_type"}),
		subscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crossbus",
			Subsystem: "bus",
			Name:      "subscriptions_active",
			Help:      "Current number of active subscriptions",
		}),
		emitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "crossbus",
				Subsystem: "bus",
				Name:      "emit_duration_seconds",
				Help:      "Time from emission start to all handlers settled",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.emittedTotal,
		m.handlerErrorsTotal,
		m.forwardedTotal,
		m.receivedTotal,
		m.subscriptionsActive,
		m.emitDuration,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// Unregister removes the collectors from the registerer.
func (m *Metrics) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registered {
		return
	}
	m.registerer.Unregister(m.emittedTotal)
	m.registerer.Unregister(m.handlerErrorsTotal)
	m.registerer.Unregister(m.forwardedTotal)
	m.registerer.Unregister(m.receivedTotal)
	m.registerer.Unregister(m.subscriptionsActive)
	m.registerer.Unregister(m.emitDuration)
	m.registered = false
}

func (m *Metrics) observeEmit(eventType, source string) {
	m.emittedTotal.WithLabelValues(eventType, source).Inc()
}

func (m *Metrics) observeHandlerError(eventType string) {
	m.handlerErrorsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) observeForwarded(eventType string) {
	m.forwardedTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) observeReceived(eventType string) {
	m.receivedTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) setActiveSubscriptions(count int) {
	m.subscriptionsActive.Set(float64(count))
}

func (m *Metrics) observeEmitDuration(eventType string, d time.Duration) {
	m.emitDuration.WithLabelValues(eventType).Observe(d.Seconds())
}
