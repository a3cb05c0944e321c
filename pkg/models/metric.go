package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MetricState distinguishes a metric that could not be computed from one that
// was computed and happens to be zero.
type MetricState int

const (
	MetricUnknown MetricState = iota
	MetricZero
	MetricPositive
)

// String returns the state name
func (s MetricState) String() string {
	switch s {
	case MetricZero:
		return "zero"
	case MetricPositive:
		return "positive"
	default:
		return "unknown"
	}
}

// Metric is a non-negative measurement that may be unknown.
// The zero value is Unknown; it serializes to JSON null.
type Metric struct {
	value float64
	known bool
}

// UnknownMetric returns a metric with no supporting evidence
func UnknownMetric() Metric {
	return Metric{}
}

// KnownMetric returns a metric computed from evidence. Negative and NaN inputs
// are not valid measurements and yield Unknown.
func KnownMetric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Metric{}
	}
	return Metric{value: v, known: true}
}

// State reports which of the three states the metric is in
func (m Metric) State() MetricState {
	switch {
	case !m.known:
		return MetricUnknown
	case m.value == 0:
		return MetricZero
	default:
		return MetricPositive
	}
}

// IsKnown reports whether the metric was computed from evidence
func (m Metric) IsKnown() bool {
	return m.known
}

// Value returns the value and whether it is known
func (m Metric) Value() (float64, bool) {
	return m.value, m.known
}

// Float returns a pointer to the value, nil when unknown
func (m Metric) Float() *float64 {
	if !m.known {
		return nil
	}
	v := m.value
	return &v
}

// String renders the value, or "null" when unknown
func (m Metric) String() string {
	if !m.known {
		return "null"
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64)
}

// MarshalJSON encodes unknown as null
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.known {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON decodes null as unknown and any number as known
func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Metric{}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("metric: cannot unmarshal %s", string(data))
	}
	*m = KnownMetric(v)
	return nil
}
