package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RemoteError is a non-2xx answer from the backend.
type RemoteError struct {
	Status int
	// Detail is the backend's own error message, or a generic one when the
	// body carries none.
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// NetworkError means the request never completed, so there is no response
// to decode.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

// newRemoteError extracts the server-supplied message. The admin backend
// answers with {"detail": "..."} or, on schema failures, with
// {"detail": [{"msg": "...", ...}]}; other services use message or error.
func newRemoteError(status int, body []byte) *RemoteError {
	return &RemoteError{Status: status, Detail: extractDetail(status, body)}
}

func extractDetail(status int, body []byte) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			if msg := detailText(raw); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func detailText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string        `json:"msg"`
		Loc []interface{} `json:"loc"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	return ""
}
