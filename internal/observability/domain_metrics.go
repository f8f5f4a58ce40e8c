package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesquery_model_calls_total",
			Help: "Total number of language model calls by pipeline stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesquery_model_call_duration_seconds",
			Help:    "Language model call latency by pipeline stage.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"stage"},
	)
	sqlRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesquery_sql_rejections_total",
			Help: "Total number of generated SQL statements rejected before execution.",
		},
		[]string{"reason"},
	)
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesquery_questions_total",
			Help: "Total number of answered questions by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)
	questionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesquery_question_duration_seconds",
			Help:    "End-to-end latency of answering a question.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"endpoint"},
	)
	datasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesquery_dataset_loads_total",
			Help: "Total number of dataset load runs by outcome.",
		},
		[]string{"outcome"},
	)
	datasetRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesquery_dataset_rows",
			Help: "Number of order lines loaded by the latest successful dataset load.",
		},
	)
	datasetLoadDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesquery_dataset_load_duration_ms",
			Help:    "Dataset load latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		modelCallsTotal,
		modelCallDurationSeconds,
		sqlRejectionsTotal,
		questionsTotal,
		questionDurationSeconds,
		datasetLoadsTotal,
		datasetRows,
		datasetLoadDurationMs,
	)
}

func ObserveModelCall(stage string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	modelCallsTotal.WithLabelValues(stage, outcome).Inc()
	modelCallDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func IncrementSQLRejection(reason string) {
	sqlRejectionsTotal.WithLabelValues(reason).Inc()
}

func ObserveQuestion(endpoint, outcome string, elapsed time.Duration) {
	questionsTotal.WithLabelValues(endpoint, outcome).Inc()
	questionDurationSeconds.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func ObserveDatasetLoad(rows int64, err error, elapsed time.Duration) {
	if err != nil {
		datasetLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	datasetLoadsTotal.WithLabelValues("ok").Inc()
	if rows < 0 {
		rows = 0
	}
	datasetRows.Set(float64(rows))
	datasetLoadDurationMs.Observe(float64(elapsed.Milliseconds()))
}
