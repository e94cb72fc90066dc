package cmi

import "strings"

type Status string

const (
	StatusPassed       Status = "passed"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusIncomplete   Status = "incomplete"
	StatusBrowsed      Status = "browsed"
	StatusNotAttempted Status = "not attempted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPassed, StatusCompleted, StatusFailed, StatusIncomplete, StatusBrowsed, StatusNotAttempted:
		return true
	}
	return false
}

// Finished reports whether the status ends the lesson.
func (s Status) Finished() bool {
	return s == StatusPassed || s == StatusCompleted || s == StatusFailed
}

// ParseStatus accepts the vocabulary case-insensitively.
func ParseStatus(v string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	return s, s.Valid()
}
