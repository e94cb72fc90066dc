package bridge

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/yungbote/scormbridge/internal/scorm/cmi"
)

// TargetKind names an execution context the generated script installs into.
type TargetKind string

const (
	TargetSelf   TargetKind = "self"
	TargetFrames TargetKind = "frames"
	TargetOpener TargetKind = "opener"
)

// DefaultTargets installs everywhere the script can reach.
var DefaultTargets = []TargetKind{TargetSelf, TargetFrames, TargetOpener}

// ParseTargets reads a comma separated target list.
func ParseTargets(raw string) ([]TargetKind, error) {
	var out []TargetKind
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch TargetKind(part) {
		case "":
			continue
		case TargetSelf, TargetFrames, TargetOpener:
			out = append(out, TargetKind(part))
		default:
			return nil, fmt.Errorf("unknown bridge target %q", part)
		}
	}
	return out, nil
}

// ScriptOptions configures the JavaScript content half.
//
// Endpoint selects the relay: a ws:// or wss:// URL opens a WebSocket, an
// http(s) URL is POSTed to, and an empty endpoint posts through
// window.ReactNativeWebView or, inside a frame, the parent window.
type ScriptOptions struct {
	Record   cmi.Record
	Targets  []TargetKind
	Endpoint string
	Token    string
}

//go:embed bridge.js.tmpl
var scriptSource string

var scriptTemplate = template.Must(template.New("bridge.js").Parse(scriptSource))

// Script renders the content half for injection into a document.
func Script(opts ScriptOptions) (string, error) {
	targets := opts.Targets
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	record := opts.Record.Strings()

	data := map[string]string{}
	for key, v := range map[string]any{
		"Record":        record,
		"Targets":       targets,
		"Endpoint":      opts.Endpoint,
		"Token":         opts.Token,
		"NoErrorCode":   NoErrorCode,
		"NoErrorString": NoErrorString,
		"NoDiagnostic":  NoDiagnostic,
	} {
		lit, err := jsLiteral(v)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", key, err)
		}
		data[key] = lit
	}

	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// jsLiteral encodes v as JSON. encoding/json escapes <, >, & and the JS line
// separators, so the result is safe inside an HTML script element.
func jsLiteral(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
