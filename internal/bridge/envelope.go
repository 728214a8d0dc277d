package bridge

import (
	"encoding/json"
	"time"
)

// Envelope is the metadata the messenger stamps onto every outbound
// message. The payload stays opaque; only the envelope fields are
// structural. Wire keys keep the underscore prefix so embedding clients
// can tell relay metadata from payload content.
type Envelope struct {
	// Source is the normalized origin of the sending context.
	Source string `json:"_source"`

	// Timestamp is the send time in RFC 3339 form.
	Timestamp string `json:"_timestamp"`

	// Seq is a per-messenger monotonic sequence number. Together with
	// Source it orders messages from one sender.
	Seq uint64 `json:"_id"`

	// Payload is the caller's JSON-serializable message body.
	Payload json.RawMessage `json:"payload"`
}

// errorReportProbe is the minimal shape sniffed off a payload to detect
// self-tagged error reports.
type errorReportProbe struct {
	Type string `json:"type"`
}

// IsErrorReport reports whether the envelope's payload tags itself as an
// error report. Such payloads are forwarded to the error sink before
// ordinary dispatch; they are only ever logged, never executed.
func (e Envelope) IsErrorReport() bool {
	var probe errorReportProbe
	if err := json.Unmarshal(e.Payload, &probe); err != nil {
		return false
	}
	return probe.Type == "error-report"
}

// newEnvelope wraps payload with the relay metadata fields.
func newEnvelope(source string, seq uint64, payload json.RawMessage, now time.Time) Envelope {
	return Envelope{
		Source:    source,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Seq:       seq,
		Payload:   payload,
	}
}
