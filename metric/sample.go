package metric

import "time"

// SampleType distinguishes how a sample should be interpreted downstream.
type SampleType string

const (
	TypeGauge     SampleType = "gauge"
	TypeCounter   SampleType = "counter"
	TypeHistogram SampleType = "histogram"
)

// Sample is one ephemeral measurement. It exists only until drained into an
// export batch.
type Sample struct {
	Name      string
	Value     float64
	Timestamp time.Time
	Type      SampleType
	Labels    map[string]string
}

// Sink receives samples. The exporter implements it.
type Sink interface {
	ExportMetric(sample Sample)
}
