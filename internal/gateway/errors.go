package gateway

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindTransport covers network failures: refused connections, DNS, timeouts.
	KindTransport ErrorKind = iota
	// KindBackend covers non-2xx responses from the backend.
	KindBackend
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// CallError reports a failed outbound call. Body holds the parsed error body
// when the backend sent one.
type CallError struct {
	Action  string
	Kind    ErrorKind
	Status  int
	Message string
	Body    map[string]any
	Err     error
}

func (e *CallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s error: %s", e.Action, e.Kind, e.Message)
	if reason := e.Reason(); reason != "" {
		b.WriteString(" (")
		b.WriteString(reason)
		b.WriteString(")")
	}
	return b.String()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Reason extracts a human-readable reason from the error body, if any.
func (e *CallError) Reason() string {
	if e == nil || e.Body == nil {
		return ""
	}
	for _, key := range []string{"error", "reason", "message"} {
		if s, ok := e.Body[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// InputError is raised before any network call when user input is missing or
// invalid. Prompt is the text shown to the user.
type InputError struct {
	Action string
	Field  string
	Prompt string
}

func (e *InputError) Error() string {
	return e.Prompt
}

// User-facing prompts for rejected input.
const (
	PromptStreamURL  = "Please enter a valid Stream URL starting with http(s):// or click a favorite."
	PromptFavorite   = "Please enter a valid Nickname and a valid Stream URL (starting with http:// or https://) to save."
	PromptVolume     = "Volume must be between 0% and 100%."
	PromptFavoriteID = "No favorite selected."
)
