package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "intake"

// Metrics holds the service's prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	submissions    *prometheus.CounterVec
	unassigned     prometheus.Counter
	actionsCreated *prometheus.CounterVec
	actionsDone    prometheus.Counter
	reassessments  *prometheus.CounterVec
	sweepAssigned  prometheus.Counter
	statusChanges  *prometheus.CounterVec
	qrScans        prometheus.Counter
	submitDuration prometheus.Histogram
	scoreTotal     prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Intake submissions scored, by acuity tier.",
		}, []string{"acuity"}),
		unassigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unassigned_total",
			Help:      "Submissions with no caseworker covering their organization and zone.",
		}),
		actionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_items_created_total",
			Help:      "Action items queued for caseworkers, by type.",
		}, []string{"action_type"}),
		actionsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_items_completed_total",
			Help:      "Action items marked complete.",
		}),
		reassessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reassessments_total",
			Help:      "Reassessments recorded, by resulting acuity tier.",
		}, []string{"acuity"}),
		sweepAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_assigned_total",
			Help:      "Previously unassigned clients routed by the background sweep.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_status_changes_total",
			Help:      "Client lifecycle transitions made by caseworkers, by new status.",
		}, []string{"status"}),
		qrScans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qr_scans_total",
			Help:      "QR code scans that started an intake.",
		}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "End-to-end latency of one intake submission.",
			Buckets:   prometheus.DefBuckets,
		}),
		scoreTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vulnerability_score",
			Help:      "Distribution of total vulnerability scores.",
			Buckets:   prometheus.LinearBuckets(0, 1, 18),
		}),
	}
	reg.MustRegister(
		m.submissions, m.unassigned, m.actionsCreated, m.actionsDone,
		m.reassessments, m.sweepAssigned, m.statusChanges, m.qrScans, m.submitDuration, m.scoreTotal,
	)
	return m
}

func (m *Metrics) ObserveSubmission(acuity string, total int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(acuity).Inc()
	m.scoreTotal.Observe(float64(total))
	m.submitDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) IncUnassigned() {
	if m == nil {
		return
	}
	m.unassigned.Inc()
}

func (m *Metrics) IncActionCreated(actionType string) {
	if m == nil {
		return
	}
	m.actionsCreated.WithLabelValues(actionType).Inc()
}

func (m *Metrics) IncActionCompleted() {
	if m == nil {
		return
	}
	m.actionsDone.Inc()
}

func (m *Metrics) IncReassessment(acuity string) {
	if m == nil {
		return
	}
	m.reassessments.WithLabelValues(acuity).Inc()
}

func (m *Metrics) IncSweepAssigned() {
	if m == nil {
		return
	}
	m.sweepAssigned.Inc()
}

func (m *Metrics) IncQRScan() {
	if m == nil {
		return
	}
	m.qrScans.Inc()
}

func (m *Metrics) IncStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}
