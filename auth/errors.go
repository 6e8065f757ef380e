package auth

import "errors"

// Sentinel errors for each failure kind. Use errors.Is against an *Error.
var (
	ErrInvalidHost       = errors.New("auth: invalid krampus host")
	ErrInvalidCredential = errors.New("auth: invalid api key")
	ErrUnexpectedService = errors.New("auth: unexpected service response")
	ErrMissingToken      = errors.New("auth: missing access token")
)

// ErrMalformedEndpoint is the cause attached when the resolved host cannot
// form a request URL at all.
var ErrMalformedEndpoint = errors.New("auth: malformed endpoint")

// ErrorKind classifies a failed authentication.
type ErrorKind int

const (
	KindInvalidHost ErrorKind = iota + 1
	KindInvalidCredential
	KindUnexpectedService
	KindMissingToken
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidHost:
		return "invalid_host"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindUnexpectedService:
		return "unexpected_service"
	case KindMissingToken:
		return "missing_token"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidHost:
		return ErrInvalidHost
	case KindInvalidCredential:
		return ErrInvalidCredential
	case KindUnexpectedService:
		return ErrUnexpectedService
	case KindMissingToken:
		return ErrMissingToken
	default:
		return nil
	}
}

// Error is the single failure reported by an authentication attempt.
// Error() returns the human-readable message meant for the workflow log.
type Error struct {
	Kind ErrorKind

	// Host is the Krampus host that was contacted, when known.
	Host string

	// StatusCode is the remote HTTP status (0 if no response was received).
	StatusCode int

	// Status is the remote status text, or a short description of the failure.
	Status string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidHost:
		msg := "Invalid Krampus host"
		if e.Host != "" {
			msg += " " + e.Host
		}
		if e.Status != "" {
			msg += ": " + e.Status
		}
		return msg
	case KindInvalidCredential:
		return "Invalid API key"
	case KindMissingToken:
		return "Did not receive a token from Krampus"
	default:
		return "Failed to authenticate with Krampus: " + e.Status
	}
}

// Unwrap exposes the cause so transport errors stay inspectable.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// ErrorKind returns the kind name for telemetry attributes.
func (e *Error) ErrorKind() string {
	return e.Kind.String()
}

// KindOf returns the ErrorKind carried by err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return 0
}
