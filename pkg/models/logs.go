package models

import "sort"

// LogEntry is one record of an agent's tool/audit log. The backend attaches
// free-form metadata, so the entry stays a raw field map with accessors for
// the fields the console understands.
type LogEntry map[string]interface{}

// headerFields are shown in the entry header and left out of Metadata.
var headerFields = map[string]bool{
	"timestamp":  true,
	"user_id":    true,
	"username":   true,
	"id":         true,
	"agent_code": true,
}

func (e LogEntry) UserID() string    { return String(e["user_id"]) }
func (e LogEntry) Username() string  { return String(e["username"]) }
func (e LogEntry) Timestamp() string { return String(e["timestamp"]) }

// Text is the human-readable payload: message, else input.
func (e LogEntry) Text() string {
	if s := String(e["message"]); s != "" {
		return s
	}
	return String(e["input"])
}

// ErrorText returns the error text, empty when the entry succeeded.
func (e LogEntry) ErrorText() string { return String(e["error"]) }

// Failed reports whether the entry carries an error.
func (e LogEntry) Failed() bool {
	v, ok := e["error"]
	if !ok || v == nil {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	return String(v) != ""
}

// MatchesUser reports whether the entry belongs to user, compared as
// strings against both user_id and username.
func (e LogEntry) MatchesUser(user string) bool {
	if user == "" {
		return true
	}
	return e.UserID() == user || e.Username() == user
}

// Metadata returns the entry's fields minus the header fields, as
// key-sorted pairs.
func (e LogEntry) Metadata() []Field {
	keys := make([]string, 0, len(e))
	for k := range e {
		if !headerFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: e[k]})
	}
	return fields
}

// Field is one key/value of a log entry's metadata.
type Field struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}
