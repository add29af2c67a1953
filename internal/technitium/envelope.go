package technitium

import (
	"bytes"
	"encoding/json"
)

// Status is the tag of the remote API's response envelope.
type Status string

const (
	// StatusOK marks a successful call.
	StatusOK Status = "ok"
	// StatusError marks a generic failure with an errorMessage.
	StatusError Status = "error"
	// StatusInvalidToken marks a rejected session token, distinct from a
	// generic error; it drives the one-retry re-authentication policy.
	StatusInvalidToken Status = "invalid-token"
)

// Envelope is the JSON envelope every structured endpoint returns. Fields
// other than Status are present only for the variants that carry them.
type Envelope struct {
	Status       Status          `json:"status"`
	Response     json.RawMessage `json:"response,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	StackTrace   string          `json:"stackTrace,omitempty"`
}

// message returns the best available human-readable failure description.
func (e *Envelope) message() string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	return string(e.Status)
}

// probeEnvelope detects a JSON envelope superimposed on a text-returning
// endpoint (the server reports errors as JSON even for zone-file exports).
func probeEnvelope(body []byte) (*Envelope, bool) {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return nil, false
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, false
	}
	if env.Status == "" {
		return nil, false
	}
	return &env, true
}
