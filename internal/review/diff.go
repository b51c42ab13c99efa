// Package review computes field-level differences between an entity as
// loaded and as edited, and gates the commit of an edit on there being any.
package review

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/agentoven/agentoven/console/pkg/models"
)

// Change is one field whose value differs.
type Change struct {
	Key string      `json:"key"`
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Diff compares original and edited over the union of their keys and
// returns the differing fields sorted by key.
func Diff(original, edited map[string]interface{}) []Change {
	keys := make(map[string]struct{}, len(original)+len(edited))
	for k := range original {
		keys[k] = struct{}{}
	}
	for k := range edited {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	changes := []Change{}
	for _, k := range sorted {
		old, nw := original[k], edited[k]
		if !Equal(old, nw) {
			changes = append(changes, Change{Key: k, Old: old, New: nw})
		}
	}
	return changes
}

// Equal is the field comparison used by Diff. Absent, null and "" are the
// same empty value; 0 and false are not empty. Numbers compare numerically,
// also against numeric strings, and booleans match "true"/"false".
// Objects and arrays compare by their canonical JSON.
func Equal(a, b interface{}) bool {
	ea, eb := isEmpty(a), isEmpty(b)
	if ea || eb {
		return ea && eb
	}

	if isNumber(a) || isNumber(b) {
		x, okx := models.Number(a)
		y, oky := models.Number(b)
		if okx && oky {
			return x == y
		}
		return false
	}

	if _, ok := a.(bool); ok {
		return models.String(a) == models.String(b) && isScalar(b)
	}
	if _, ok := b.(bool); ok {
		return models.String(a) == models.String(b) && isScalar(a)
	}

	if isScalar(a) && isScalar(b) {
		return models.String(a) == models.String(b)
	}
	return canonical(a, b)
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func canonical(a, b interface{}) bool {
	ja, erra := json.Marshal(a)
	jb, errb := json.Marshal(b)
	if erra != nil || errb != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ja, jb)
}
