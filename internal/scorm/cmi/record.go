// Package cmi holds the SCORM run-time data model as a flat key/value record.
package cmi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Data model element names.
const (
	StudentID      = "cmi.core.student_id"
	StudentName    = "cmi.core.student_name"
	LessonLocation = "cmi.core.lesson_location"
	LessonStatus   = "cmi.core.lesson_status"
	ScoreRaw       = "cmi.core.score.raw"
	ScoreMax       = "cmi.core.score.max"
	ScoreMin       = "cmi.core.score.min"
	TotalTime      = "cmi.core.total_time"
	Exit           = "cmi.core.exit"
	SessionTime    = "cmi.core.session_time"
	SuspendData    = "cmi.suspend_data"
	LaunchData     = "cmi.launch_data"

	InteractionsCount = "cmi.interactions._count"
	ObjectivesCount   = "cmi.objectives._count"
)

// Interaction returns the element name of field for the n-th interaction,
// e.g. Interaction(0, "id") is "cmi.interactions.0.id".
func Interaction(n int, field string) string {
	return "cmi.interactions." + strconv.Itoa(n) + "." + field
}

// Objective returns the element name of field for the n-th objective.
func Objective(n int, field string) string {
	return "cmi.objectives." + strconv.Itoa(n) + "." + field
}

// Record is a learner's progress snapshot. Values are scalars: strings,
// numbers or booleans.
type Record map[string]any

// Clone returns a shallow copy. A nil record clones to an empty one.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Value renders the element as the string the run-time API hands to content.
func (r Record) Value(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return Format(v), true
}

// Keys returns the element names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings renders every element with Format.
func (r Record) Strings() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		if v == nil {
			continue
		}
		out[k] = Format(v)
	}
	return out
}

// Format renders a scalar without trailing zeros or exponent noise.
func Format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// Float reads a numeric element. Numeric strings are accepted.
func (r Record) Float(key string) (float64, bool) {
	switch t := r[key].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// carried are the elements a new attempt inherits from the previous one.
var carried = []string{
	StudentID,
	StudentName,
	LessonLocation,
	LessonStatus,
	ScoreRaw,
	ScoreMax,
	ScoreMin,
	TotalTime,
	SuspendData,
	LaunchData,
}

// Resume builds the record a new attempt starts from. Session scoped
// elements such as cmi.core.exit and cmi.core.session_time are dropped.
func Resume(prev Record) Record {
	out := Record{}
	for _, k := range carried {
		if v, ok := prev[k]; ok && v != nil {
			out[k] = v
		}
	}
	return out
}
