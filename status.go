package pumpwatch

import "time"

// Label is the display state derived from a single poll of the pump.
//
// Label is a string type so it serializes cleanly to JSON and reads well in
// logs. The set is closed: [LabelError], [LabelPaused], [LabelRunning],
// [LabelEnabled] and [LabelNone].
type Label string

const (
	// LabelError is shown when the pump reports a fault or the poll itself
	// failed (transport error, non-2xx response, undecodable body).
	LabelError Label = "error"

	// LabelPaused is shown when a dispense is paused.
	LabelPaused Label = "paused"

	// LabelRunning is shown while the pump is dispensing.
	LabelRunning Label = "running"

	// LabelEnabled is shown when the motor is energised but idle.
	LabelEnabled Label = "enabled"

	// LabelNone means no recognised flag was set. No display update is
	// emitted for it.
	LabelNone Label = "none"
)

// String returns the string representation of the label.
func (l Label) String() string {
	return string(l)
}

// Valid reports whether l is one of the defined labels.
func (l Label) Valid() bool {
	switch l {
	case LabelError, LabelPaused, LabelRunning, LabelEnabled, LabelNone:
		return true
	}
	return false
}

// PumpStatus is the status record returned by the pump's status endpoint.
//
// The four flags are mutually prioritised, not mutually exclusive: a
// controller may report running and enabled at once. [Classify] resolves
// them into a single [Label].
type PumpStatus struct {
	Error   bool `json:"error"`
	Paused  bool `json:"paused"`
	Running bool `json:"running"`
	Enabled bool `json:"enabled"`
}

// Classify maps a status record to a label using the fixed priority
// error > paused > running > enabled. It returns [LabelNone] when no flag
// is set.
func Classify(s PumpStatus) Label {
	switch {
	case s.Error:
		return LabelError
	case s.Paused:
		return LabelPaused
	case s.Running:
		return LabelRunning
	case s.Enabled:
		return LabelEnabled
	default:
		return LabelNone
	}
}

// StatusResult holds the outcome of one poll cycle.
//
// StatusResult is passed to callbacks registered with [WithStatusCallback].
// Callbacks registered with [WithDisplay] receive only the Label.
type StatusResult struct {
	// EndpointName is the display name of the polled endpoint.
	EndpointName string

	// URL is the status URL that was polled.
	URL string

	// Label is the derived display state.
	Label Label

	// Status is the decoded record. Zero when the poll failed.
	Status PumpStatus

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// CheckedAt is when the poll resolved.
	CheckedAt time.Time

	// Error is non-nil when Label is [LabelError] because the poll failed
	// rather than because the pump reported a fault.
	Error error

	// StatusCode is the HTTP status code. Zero if no response was received.
	StatusCode int

	// Sequence numbers poll cycles from 1 in the order they were started.
	// Overlapping polls may resolve out of order.
	Sequence uint64
}
