package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/five82/carradio/internal/favorites"
)

// Message types pushed by the backend.
const (
	TypeUI          = "ui"
	TypeUpdateState = "updateState"
	TypeFavorites   = "favorites"
)

// Message is a decoded push message. Payload is one of *Visibility,
// *StateSnapshot, *FavoritesSnapshot, or json.RawMessage for unknown types.
type Message struct {
	Type       string
	ReceivedAt time.Time
	Payload    any
}

// Known reports whether the message type is one the overlay understands.
func (m Message) Known() bool {
	switch m.Type {
	case TypeUI, TypeUpdateState, TypeFavorites:
		return true
	}
	return false
}

// Visibility toggles the overlay.
type Visibility struct {
	Display bool
}

// StateSnapshot is a full-replacement playback state. Nil fields were absent
// from the message.
type StateSnapshot struct {
	Playing *bool
	URL     *string
	Volume  *float64
}

// HasStatus reports whether the snapshot carries play status at all.
func (s StateSnapshot) HasStatus() bool {
	return s.Playing != nil || s.URL != nil
}

// FavoritesSnapshot replaces the whole favorites collection.
type FavoritesSnapshot struct {
	Favorites favorites.Snapshot
}

// MalformedMessageError reports a push message that could not be interpreted.
// The message is skipped; later messages are unaffected.
type MalformedMessageError struct {
	Reason string
	Raw    string
}

func (e *MalformedMessageError) Error() string {
	return "malformed push message: " + e.Reason
}

const maxRawInError = 256

func malformed(data []byte, format string, args ...any) *MalformedMessageError {
	raw := string(data)
	if len(raw) > maxRawInError {
		raw = raw[:maxRawInError] + "…"
	}
	return &MalformedMessageError{Reason: fmt.Sprintf(format, args...), Raw: raw}
}

// Decode parses a push message in its wire format.
func Decode(data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Message{}, malformed(data, "not a JSON object: %v", err)
	}
	if fields == nil {
		return Message{}, malformed(data, "null message")
	}

	var msgType string
	if raw, ok := fields["type"]; !ok || json.Unmarshal(raw, &msgType) != nil || msgType == "" {
		return Message{}, malformed(data, "missing message type")
	}

	msg := Message{Type: msgType, ReceivedAt: time.Now()}
	switch msgType {
	case TypeUI:
		display, err := decodeDisplay(fields["display"])
		if err != nil {
			return Message{}, malformed(data, "ui: %v", err)
		}
		msg.Payload = &Visibility{Display: display}
	case TypeUpdateState:
		msg.Payload = decodeState(fields["state"])
	case TypeFavorites:
		snap, err := decodeFavorites(fields["favorites"])
		if err != nil {
			return Message{}, malformed(data, "favorites: %v", err)
		}
		msg.Payload = &FavoritesSnapshot{Favorites: snap}
	default:
		msg.Payload = json.RawMessage(bytes.Clone(data))
	}
	return msg, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeDisplay(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var display bool
	if err := json.Unmarshal(raw, &display); err != nil {
		return false, fmt.Errorf("display is not a boolean")
	}
	return display, nil
}

// decodeState never fails: absent, null or non-object states decode to an
// empty snapshot and fields of the wrong type are treated as falsy/absent.
func decodeState(raw json.RawMessage) *StateSnapshot {
	snap := &StateSnapshot{}
	var fields map[string]json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &fields) != nil {
		return snap
	}

	if value, ok := fields["playing"]; ok {
		var playing bool
		_ = json.Unmarshal(value, &playing)
		snap.Playing = &playing
	}
	if value, ok := fields["url"]; ok {
		var u string
		_ = json.Unmarshal(value, &u)
		snap.URL = &u
	}
	if value, ok := fields["volume"]; ok {
		var volume float64
		if json.Unmarshal(value, &volume) == nil {
			snap.Volume = &volume
		}
	}
	return snap
}

func decodeFavorites(raw json.RawMessage) (favorites.Snapshot, error) {
	if isNull(raw) {
		return favorites.Snapshot{}, nil
	}
	var snap favorites.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("mapping is not an object")
	}
	if snap == nil {
		snap = favorites.Snapshot{}
	}
	return snap, nil
}
