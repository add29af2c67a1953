package technitium

import "fmt"

// AuthError means the login exchange was rejected or no usable credential is
// configured. Fatal to the calling operation, never retried automatically
// beyond the single expiry-triggered re-authentication.
type AuthError struct {
	Action  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%s): %s", e.Action, e.Message)
}

// APIError means the remote API reported a non-success status other than
// credential expiry.
type APIError struct {
	Endpoint string
	Status   Status
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error on %s: %s", e.Endpoint, e.Message)
}
