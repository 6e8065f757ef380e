package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// AccessTokenField is the key the token service uses for the issued token.
const AccessTokenField = "access_token"

// Response is a token service reply reduced to what classification needs.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the status text without the numeric code (e.g. "Not Found").
	Status string

	// Body is the full response body.
	Body []byte
}

// TokenResponse is a successfully classified token service payload.
type TokenResponse struct {
	// AccessToken is the token value when it is a JSON string.
	AccessToken string

	// Claims holds every top-level field of the payload.
	Claims map[string]any
}

// Classify maps a token service reply to a TokenResponse or exactly one
// *Error. It depends only on the status and body.
func Classify(resp Response) (*TokenResponse, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp)
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, malformedResponse(resp, fmt.Errorf("decode token response: %w", err))
	}
	// A JSON null decodes without error into a nil map.
	if raw == nil {
		return nil, malformedResponse(resp, errors.New("decode token response: body is null"))
	}

	// Presence check only; the value is opaque to us.
	value, ok := raw[AccessTokenField]
	if !ok {
		return nil, &Error{
			Kind:       KindMissingToken,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	token, _ := value.(string)
	return &TokenResponse{
		AccessToken: token,
		Claims:      raw,
	}, nil
}

func malformedResponse(resp Response, cause error) *Error {
	return &Error{
		Kind:       KindUnexpectedService,
		StatusCode: resp.StatusCode,
		Status:     "malformed response",
		Err:        cause,
	}
}

func classifyStatus(resp Response) *Error {
	e := &Error{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusServiceUnavailable:
		e.Kind = KindInvalidHost
	case http.StatusInternalServerError:
		e.Kind = KindInvalidCredential
	default:
		e.Kind = KindUnexpectedService
	}
	return e
}

// statusText strips the numeric code from an http.Response status line,
// falling back to the canonical text when the server sent none.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
