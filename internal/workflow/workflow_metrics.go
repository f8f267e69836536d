package workflow

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the workflow subsystem. A nil
// *Metrics is valid and records nothing, which keeps agent tests free of
// registry setup.
type Metrics struct {
	CasesTotal       *prometheus.CounterVec
	CaseDuration     *prometheus.HistogramVec
	StagesTotal      *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	LLMCallsTotal    *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	EscalationsTotal prometheus.Counter
	ReviewsTotal     *prometheus.CounterVec
	RetrievalDocs    prometheus.Histogram
	CasesInFlight    prometheus.Gauge
	SubmitsTotal     *prometheus.CounterVec
}

// NewMetrics registers and returns workflow metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foghorn_cases_total",
			Help: "Total workflow runs by final status.",
		}, []string{"status"}),
		CaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foghorn_case_duration_seconds",
			Help:    "Duration of workflow runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status"}),
		StagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foghorn_stages_total",
			Help: "Total stage executions by stage name.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foghorn_stage_duration_seconds",
			Help:    "Duration of individual stage executions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}, []string{"stage"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foghorn_llm_calls_total",
			Help: "Total reasoning adapter calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foghorn_fallbacks_total",
			Help: "Total deterministic fallback activations by stage.",
		}, []string{"stage"}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foghorn_escalations_total",
			Help: "Total escalations raised.",
		}),
		ReviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foghorn_reviews_total",
			Help: "Total human review decisions by outcome.",
		}, []string{"decision"}),
		RetrievalDocs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "foghorn_retrieval_documents",
			Help:    "Evidence documents returned per retrieval.",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 .. 10
		}),
		CasesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foghorn_cases_in_flight",
			Help: "Workflow runs currently executing or awaiting review.",
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foghorn_submits_total",
			Help: "Total alert submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.CasesTotal,
		m.CaseDuration,
		m.StagesTotal,
		m.StageDuration,
		m.LLMCallsTotal,
		m.FallbacksTotal,
		m.EscalationsTotal,
		m.ReviewsTotal,
		m.RetrievalDocs,
		m.CasesInFlight,
		m.SubmitsTotal,
	)

	return m
}

func (m *Metrics) IncLLMCall(stage Stage, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.LLMCallsTotal.WithLabelValues(string(stage), outcome).Inc()
}

func (m *Metrics) IncFallback(stage Stage) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) IncStage(stage Stage) {
	if m == nil {
		return
	}
	m.StagesTotal.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) ObserveStage(stage Stage, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(string(stage)).Observe(seconds)
}

func (m *Metrics) ObserveRetrieval(docs int) {
	if m == nil {
		return
	}
	m.RetrievalDocs.Observe(float64(docs))
}

func (m *Metrics) IncEscalation() {
	if m == nil {
		return
	}
	m.EscalationsTotal.Inc()
}

func (m *Metrics) IncReview(decision string) {
	if m == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(decision).Inc()
}

func (m *Metrics) CaseStarted() {
	if m == nil {
		return
	}
	m.CasesInFlight.Inc()
}

func (m *Metrics) CaseFinished(status Status, seconds float64) {
	if m == nil {
		return
	}
	m.CasesInFlight.Dec()
	m.CasesTotal.WithLabelValues(string(status)).Inc()
	m.CaseDuration.WithLabelValues(string(status)).Observe(seconds)
}

func (m *Metrics) IncSubmit(result string) {
	if m == nil {
		return
	}
	m.SubmitsTotal.WithLabelValues(result).Inc()
}
