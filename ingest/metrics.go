package ingest

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ingestion outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Files            *prom.CounterVec
	RecordsInserted  prom.Counter
	NormalizeSeconds prom.Histogram
}

// NewMetrics creates the ingestion collectors and registers them with reg.
func NewMetrics(reg prom.Registerer) *Metrics {
	m := &Metrics{
		Files: prom.NewCounterVec(prom.CounterOpts{
			Name: "roster_files_total",
			Help: "Roster files processed, by outcome status.",
		}, []string{"status"}),
		RecordsInserted: prom.NewCounter(prom.CounterOpts{
			Name: "roster_records_inserted_total",
			Help: "Normalized roster records inserted.",
		}),
		NormalizeSeconds: prom.NewHistogram(prom.HistogramOpts{
			Name:    "roster_normalize_seconds",
			Help:    "Time spent normalizing one roster grid.",
			Buckets: prom.DefBuckets,
		}),
	}
	reg.MustRegister(m.Files, m.RecordsInserted, m.NormalizeSeconds)
	return m
}

func (m *Metrics) countOutcome(out Outcome) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(string(out.Status)).Inc()
	if out.Status == StatusSuccess {
		m.RecordsInserted.Add(float64(out.RowCount))
	}
}

func (m *Metrics) observeNormalize(d time.Duration) {
	if m == nil {
		return
	}
	m.NormalizeSeconds.Observe(d.Seconds())
}
