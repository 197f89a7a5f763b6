package gitea

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAlreadyExists signals that a create hit a resource that is already
// present. Callers treat it as a benign skip, never as a failure.
var ErrAlreadyExists = errors.New("resource already exists")

// TransportError wraps a network-level failure reaching the instance.
// It is fatal for a provisioning run: if one request cannot connect,
// neither can the next.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gitea unreachable at %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RequestRejected is a remote validation failure (4xx other than the
// already-exists cases), scoped to the single resource being processed.
type RequestRejected struct {
	Status  int
	Message string
}

func (e *RequestRejected) Error() string {
	return fmt.Sprintf("gitea rejected request (%d): %s", e.Status, e.Message)
}

// RemoteServiceError is a 5xx from the instance, scoped to the single
// resource being processed.
type RemoteServiceError struct {
	Status  int
	Message string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("gitea server error (%d): %s", e.Status, e.Message)
}

// apiMessage extracts the "message" field of a Gitea error payload,
// falling back to the raw body.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// classifyStatus converts a non-2xx response into the error taxonomy.
// Gitea reports duplicates either as 409 or as a 422 whose message names
// the conflict; both collapse into ErrAlreadyExists.
func classifyStatus(status int, body []byte) error {
	msg := apiMessage(body)
	switch {
	case status == http.StatusConflict:
		return ErrAlreadyExists
	case status >= 400 && status < 500:
		if strings.Contains(strings.ToLower(msg), "already exists") ||
			strings.Contains(strings.ToLower(msg), "already been taken") {
			return ErrAlreadyExists
		}
		return &RequestRejected{Status: status, Message: msg}
	case status >= 500:
		return &RemoteServiceError{Status: status, Message: msg}
	default:
		return &RequestRejected{Status: status, Message: msg}
	}
}
