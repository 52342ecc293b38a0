package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Error taxonomy for everything that crosses the backend boundary. Callers
// branch with errors.Is / errors.As; no raw status codes leave this package.
var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotFound           = errors.New("resource not found")
	ErrServer             = errors.New("server error")
	ErrUnknown            = errors.New("unknown error")
)

// ValidationError carries the backend's field-level messages from a 400
// response. Error() joins them into the single human-readable string the UI
// shows.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)

	var msgs []string
	for _, f := range names {
		msgs = append(msgs, e.Fields[f]...)
	}
	return strings.Join(msgs, "; ")
}

// errorPayload covers the shapes the backend answers errors with.
type errorPayload struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

// decodeError maps a non-2xx response onto the taxonomy. The body is
// consumed; the caller still owns closing it.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload errorPayload
	_ = json.Unmarshal(body, &payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if len(payload.Errors) > 0 {
			return &ValidationError{Fields: payload.Errors}
		}
		if msg != "" {
			return &ValidationError{Fields: map[string][]string{"request": {msg}}}
		}
		return &ValidationError{}
	case resp.StatusCode == http.StatusUnauthorized:
		return wrapMsg(ErrInvalidCredentials, msg)
	case resp.StatusCode == http.StatusForbidden:
		return wrapMsg(ErrForbidden, msg)
	case resp.StatusCode == http.StatusNotFound:
		return wrapMsg(ErrNotFound, msg)
	case resp.StatusCode >= 500:
		return wrapMsg(ErrServer, msg)
	default:
		return wrapMsg(ErrUnknown, fmt.Sprintf("status %d: %s", resp.StatusCode, msg))
	}
}

func wrapMsg(sentinel error, msg string) error {
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// UserMessage flattens any taxonomy error into the string shown to the
// customer.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, ErrNetworkUnavailable):
		return "cannot reach the server, please try again"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, ErrForbidden):
		return "you do not have permission to do that"
	case errors.Is(err, ErrSessionExpired):
		return "your session has expired, please login again"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrServer):
		return "the server had a problem, please try again later"
	default:
		return "something went wrong"
	}
}
