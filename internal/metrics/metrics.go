package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	OperationsInFlight *prometheus.GaugeVec
	EditEventsTotal    *prometheus.CounterVec
	KeyserverRecords   *prometheus.CounterVec
	ProcessesSpawned   *prometheus.CounterVec
	ApiTotal           *prometheus.CounterVec
	ApiInFlight        *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "operations_total",
			Help: "total number of finished operations",
		}, []string{"type", "status"}),
		OperationsInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "operations_in_flight",
			Help: "number of running operations",
		}, []string{"type"}),
		EditEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edit_events_total",
			Help: "total number of gpg edit status events",
		}, []string{"workflow", "status"}),
		KeyserverRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keyserver_records_total",
			Help: "total number of keyserver listing records",
		}, []string{"result"}),
		ProcessesSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "processes_spawned_total",
			Help: "total number of spawned child processes",
		}, []string{"program"}),
		ApiTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_total_requests",
			Help: "total number of api requests",
		}, []string{"type", "protocol", "status"}),
		ApiInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_in_flight_requests",
			Help: "number of in flight api requests",
		}, []string{"type", "protocol"}),
	}

	metrics.Enable(reg)
	return metrics
}

func (m *Metrics) Enable(reg prometheus.Registerer) {
	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.OperationsInFlight)
	reg.MustRegister(m.EditEventsTotal)
	reg.MustRegister(m.KeyserverRecords)
	reg.MustRegister(m.ProcessesSpawned)
	reg.MustRegister(m.ApiTotal)
	reg.MustRegister(m.ApiInFlight)
}

func (m *Metrics) Disable(reg prometheus.Registerer) {
	reg.Unregister(m.OperationsTotal)
	reg.Unregister(m.OperationsInFlight)
	reg.Unregister(m.EditEventsTotal)
	reg.Unregister(m.KeyserverRecords)
	reg.Unregister(m.ProcessesSpawned)
	reg.Unregister(m.ApiTotal)
	reg.Unregister(m.ApiInFlight)
}

// Track counts op as in flight until it finishes. A nil receiver is a
// no-op so that callers can run without metrics.
func (m *Metrics) Track(op operation.Operation) {
	if m == nil {
		return
	}

	kind := op.Kind()
	m.OperationsInFlight.WithLabelValues(kind).Inc()

	op.OnDone(func(o operation.Operation) {
		m.OperationsInFlight.WithLabelValues(kind).Dec()
		m.OperationsTotal.WithLabelValues(kind, status(o)).Inc()
	})
}

func status(op operation.Operation) string {
	switch {
	case op.IsCancelled():
		return "cancelled"
	case op.CopyError() != nil:
		return "failure"
	default:
		return "success"
	}
}

func (m *Metrics) Spawned(program string) {
	if m == nil {
		return
	}
	m.ProcessesSpawned.WithLabelValues(program).Inc()
}

func (m *Metrics) EditEvent(workflow string, status string) {
	if m == nil {
		return
	}
	m.EditEventsTotal.WithLabelValues(workflow, status).Inc()
}

func (m *Metrics) Record(result string) {
	if m == nil {
		return
	}
	m.KeyserverRecords.WithLabelValues(result).Inc()
}

// Request counts one api request of the given route, call done with the
// response status once it has been written.
func (m *Metrics) Request(route string, protocol string) (done func(status int)) {
	if m == nil {
		return func(int) {}
	}

	m.ApiInFlight.WithLabelValues(route, protocol).Inc()
	return func(status int) {
		m.ApiInFlight.WithLabelValues(route, protocol).Dec()
		m.ApiTotal.WithLabelValues(route, protocol, strconv.Itoa(status)).Inc()
	}
}
