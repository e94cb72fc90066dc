package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yungbote/scormbridge/internal/scorm/cmi"
)

type Action string

const (
	ActionInitialize     Action = "LMSInitialize"
	ActionFinish         Action = "LMSFinish"
	ActionGetValue       Action = "LMSGetValue"
	ActionSetValue       Action = "LMSSetValue"
	ActionCommit         Action = "LMSCommit"
	ActionGetLastError   Action = "LMSGetLastError"
	ActionGetErrorString Action = "LMSGetErrorString"
	ActionGetDiagnostic  Action = "LMSGetDiagnostic"
)

// Actions lists the run-time calls in declaration order.
var Actions = []Action{
	ActionInitialize,
	ActionFinish,
	ActionGetValue,
	ActionSetValue,
	ActionCommit,
	ActionGetLastError,
	ActionGetErrorString,
	ActionGetDiagnostic,
}

// aliases maps the SCORM 2004 (API_1484_11) names onto the 1.2 calls.
var aliases = map[string]Action{
	"Initialize":     ActionInitialize,
	"Terminate":      ActionFinish,
	"GetValue":       ActionGetValue,
	"SetValue":       ActionSetValue,
	"Commit":         ActionCommit,
	"GetLastError":   ActionGetLastError,
	"GetErrorString": ActionGetErrorString,
	"GetDiagnostic":  ActionGetDiagnostic,
}

func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Alias returns the API_1484_11 name of the call.
func (a Action) Alias() string {
	for name, action := range aliases {
		if action == a {
			return name
		}
	}
	return ""
}

// ParseAction accepts both the 1.2 names and their 2004 aliases.
func ParseAction(name string) (Action, bool) {
	if a := Action(name); a.Valid() {
		return a, true
	}
	a, ok := aliases[name]
	return a, ok
}

// Constant answers for the error inspection calls.
const (
	NoErrorCode   = "0"
	NoErrorString = "No error"
	NoDiagnostic  = "No diagnostic information available"
)

const (
	resultTrue       = "true"
	resultFalse      = "false"
	maxMessageLength = 1 << 20
)

// Message is the wire form of one run-time call.
type Message struct {
	Action    Action `json:"action"`
	Parameter string `json:"parameter,omitempty"`
	Value     string `json:"value,omitempty"`
}

var (
	ErrEmptyMessage    = errors.New("empty bridge message")
	ErrMessageTooLarge = errors.New("bridge message too large")
)

// UnmarshalJSON accepts scalar parameter and value fields of any JSON type;
// content often passes numbers to SetValue.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action    string          `json:"action"`
		Parameter json.RawMessage `json:"parameter"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	param, err := scalar(raw.Parameter)
	if err != nil {
		return fmt.Errorf("parameter: %w", err)
	}
	value, err := scalar(raw.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*m = Message{Action: Action(raw.Action), Parameter: param, Value: value}
	return nil
}

func scalar(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch v.(type) {
	case map[string]any, []any:
		return "", fmt.Errorf("expected a scalar, got %s", raw)
	}
	return cmi.Format(v), nil
}

// Decode parses one message.
func Decode(raw []byte) (Message, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Message{}, ErrEmptyMessage
	}
	if len(raw) > maxMessageLength {
		return Message{}, ErrMessageTooLarge
	}
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Reply is what the host half produced for a message. The content half never
// waits for it; two-way transports may send it back.
type Reply struct {
	Action Action `json:"action"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}
