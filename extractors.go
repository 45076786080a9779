package pumpwatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnexpectedStatus is returned when the status endpoint answers with
	// a non-2xx HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrDecode is returned when the response body cannot be decoded as a
	// pump status document.
	ErrDecode = errors.New("failed to decode pump status")
)

// StatusExtractor turns an HTTP response from the status endpoint into a
// [PumpStatus].
//
// A StatusExtractor returns an error when the response cannot be
// interpreted at all; the poll is then displayed as [LabelError]. Returning
// a zero PumpStatus with a nil error means "nothing recognised" and leads
// to [LabelNone].
//
// Extractors are called within a panic recovery boundary. A panicking
// extractor is logged with a correlation ID and the poll is reported as
// [LabelError].
type StatusExtractor func(body []byte, statusCode int) (PumpStatus, error)

// PumpStatusExtractor is the default [StatusExtractor]. It rejects non-2xx
// responses and decodes the body with [DecodePumpStatus].
var PumpStatusExtractor StatusExtractor = func(body []byte, statusCode int) (PumpStatus, error) {
	if statusCode < 200 || statusCode >= 300 {
		return PumpStatus{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, statusCode)
	}
	return DecodePumpStatus(body)
}

// DecodePumpStatus decodes a status document.
//
// Flags are read with JavaScript-style truthiness so that controllers which
// report 1/0 or "yes" still classify: true, non-zero numbers, non-empty
// strings, objects and arrays are set; false, 0, "", null and absent keys
// are unset.
//
// A body that is not valid JSON, or is the JSON literal null, is an error
// wrapping [ErrDecode]. Any other non-object JSON value decodes to a zero
// PumpStatus.
func DecodePumpStatus(body []byte) (PumpStatus, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.Equal(trimmed, []byte("null")) {
		return PumpStatus{}, fmt.Errorf("%w: body is null", ErrDecode)
	}

	var s PumpStatus
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return PumpStatus{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler using the truthiness rules
// described on [DecodePumpStatus].
func (s *PumpStatus) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		*s = PumpStatus{}
		return nil
	}

	*s = PumpStatus{
		Error:   truthy(obj["error"]),
		Paused:  truthy(obj["paused"]),
		Running: truthy(obj["running"]),
		Enabled: truthy(obj["enabled"]),
	}
	return nil
}

// truthy reports whether a decoded JSON value counts as set.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// StateFieldExtractor returns a [StatusExtractor] for controllers that
// report a single state string instead of four flags.
//
// The path uses dot notation to reach the field, e.g. "pump.state" for
// {"pump": {"state": "running"}}. The value is matched case-insensitively:
//   - "error", "fault", "failed", "alarm": Error
//   - "paused", "hold": Paused
//   - "running", "dispensing", "busy": Running
//   - "enabled", "idle", "ready": Enabled
//
// Any other value, or a missing field, yields a zero PumpStatus. Non-2xx
// responses and undecodable bodies are errors, as with [PumpStatusExtractor].
func StateFieldExtractor(path string) StatusExtractor {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) (PumpStatus, error) {
		if statusCode < 200 || statusCode >= 300 {
			return PumpStatus{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, statusCode)
		}

		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return PumpStatus{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if data == nil {
			return PumpStatus{}, fmt.Errorf("%w: body is null", ErrDecode)
		}

		state, _ := extractJSONPath(data, parts).(string)
		return stateToStatus(strings.ToLower(strings.TrimSpace(state))), nil
	}
}

// extractJSONPath walks a JSON structure using dot notation parts.
func extractJSONPath(data interface{}, parts []string) interface{} {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return current
}

// stateToStatus maps common controller state names to a PumpStatus.
func stateToStatus(state string) PumpStatus {
	switch state {
	case "error", "fault", "failed", "alarm":
		return PumpStatus{Error: true}
	case "paused", "hold":
		return PumpStatus{Paused: true}
	case "running", "dispensing", "busy":
		return PumpStatus{Running: true}
	case "enabled", "idle", "ready":
		return PumpStatus{Enabled: true}
	default:
		return PumpStatus{}
	}
}

// Interpret applies an extractor to a response and classifies the result.
//
// Any extractor error yields [LabelError] together with that error.
// A nil extractor means [PumpStatusExtractor].
func Interpret(extractor StatusExtractor, body []byte, statusCode int) (Label, PumpStatus, error) {
	if extractor == nil {
		extractor = PumpStatusExtractor
	}

	status, err := extractor(body, statusCode)
	if err != nil {
		return LabelError, PumpStatus{}, err
	}
	return Classify(status), status, nil
}
