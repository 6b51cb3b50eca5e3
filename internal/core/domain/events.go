package domain

import "time"

type AlertState string

const (
	AlertOn  AlertState = "on"
	AlertOff AlertState = "off"
)

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// AlertEvent marks one hysteresis transition of a detector for one target
// entity. Values carries the numeric context a detector attaches to the
// transition, keyed by measurement name.
type AlertEvent struct {
	Detector  string             `json:"detector"`
	Target    string             `json:"target"`
	State     AlertState         `json:"state"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values,omitempty"`
}

// Issue is a severity-tagged problem report synthesized alongside an
// alert-on transition.
type Issue struct {
	Code      string    `json:"code"`
	Severity  Severity  `json:"severity"`
	Target    string    `json:"target"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
