package actions

import (
	"encoding/json"

	"github.com/soyeahso/attachkit/internal/domain"
)

// Outcome is how a flow ended.
type Outcome int

const (
	// Dismissed means the sheet was closed or the cancel entry chosen.
	Dismissed Outcome = iota
	// Emitted means exactly one payload reached the send callback.
	Emitted
	// PermissionDenied means a required scope was refused.
	PermissionDenied
	// Cancelled means the user backed out of the picker or camera.
	Cancelled
	// NoReading means the locator produced no position.
	NoReading
	// Failed means an error was caught and logged.
	Failed
)

var outcomeNames = [...]string{
	Dismissed:        "dismissed",
	Emitted:          "emitted",
	PermissionDenied: "permission_denied",
	Cancelled:        "cancelled",
	NoReading:        "no_reading",
	Failed:           "failed",
}

func (o Outcome) String() string {
	if int(o) >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Result reports one activation of the control. Payload is set only when
// Outcome is Emitted; Err only when Outcome is Failed.
type Result struct {
	Choice  domain.Choice
	Outcome Outcome
	Payload *domain.Payload
	Err     error
}

// Emitted reports whether a payload was sent.
func (r Result) Emitted() bool { return r.Outcome == Emitted }

// MarshalJSON renders the result for gateway clients.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Choice  string          `json:"choice"`
		Outcome string          `json:"outcome"`
		Payload *domain.Payload `json:"payload,omitempty"`
		Error   string          `json:"error,omitempty"`
	}{
		Choice:  r.Choice.String(),
		Outcome: r.Outcome.String(),
		Payload: r.Payload,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}
