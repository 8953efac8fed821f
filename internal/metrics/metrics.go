package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	RecordsTotal    *prometheus.CounterVec
	RowsTotal       *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	Authorities     prometheus.Gauge
	ExportedRows    *prometheus.CounterVec
	PhaseDuration   *prometheus.HistogramVec
	LastRunUnixTime prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RecordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iams2rf_records_total",
			Help: "Snapshot records seen, by pass and outcome",
		}, []string{"pass", "outcome"}),
		RowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iams2rf_rows_written_total",
			Help: "Rows inserted into the store, by table",
		}, []string{"table"}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iams2rf_errors_total",
			Help: "Recovered failures, by error code",
		}, []string{"code"}),
		Authorities: f.NewGauge(prometheus.GaugeOpts{
			Name: "iams2rf_authorities",
			Help: "Authorities in the index built by the last conversion",
		}),
		ExportedRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iams2rf_exported_rows_total",
			Help: "Rows written to Researcher Format files, by file",
		}, []string{"file"}),
		PhaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iams2rf_phase_duration_seconds",
			Help:    "Duration of conversion and export phases",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"phase"}),
		LastRunUnixTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "iams2rf_last_run_timestamp_seconds",
			Help: "Completion time of the last run",
		}),
	}
}

// WriteTextfile dumps the registry for node_exporter's textfile collector.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
