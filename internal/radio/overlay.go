package radio

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/five82/carradio/internal/favorites"
	"github.com/five82/carradio/internal/logging"
	"github.com/five82/carradio/internal/push"
)

// DefaultVolume is the slider position before the backend reports one.
const DefaultVolume = 0.5

// ConnectionState is the backend's authoritative playback state.
type ConnectionState struct {
	Playing bool
	URL     string
	Volume  float64
}

// Overlay is the overlay's complete UI state. Only Apply mutates displayed
// state; the control methods read it and return calls for the backend.
// Inputs (URL field, save form, slider while dragging) are owned by the user.
//
// An Overlay is not safe for concurrent use: it belongs to one event loop.
type Overlay struct {
	visible bool
	conn    ConnectionState

	slider   float64
	dragging bool

	urlInput      string
	nicknameInput string
	favURLInput   string

	favorites favorites.View

	pending   *Confirmation
	nextToken uint64
}

// New returns an overlay in its initial state: hidden, stopped, no favorites.
func New() *Overlay {
	return &Overlay{
		conn:      ConnectionState{Volume: DefaultVolume},
		slider:    DefaultVolume,
		favorites: favorites.Render(nil),
	}
}

// Apply folds one push message into the overlay. Every message kind is a full
// replacement, so applying the same message twice is harmless.
func (o *Overlay) Apply(msg push.Message) {
	switch payload := msg.Payload.(type) {
	case *push.Visibility:
		o.ApplyVisibility(payload.Display)
	case *push.StateSnapshot:
		o.ApplyState(*payload)
	case *push.FavoritesSnapshot:
		o.ApplyFavorites(payload.Favorites)
	default:
		logging.Warnf("Received unknown push message type: %s %s", msg.Type, rawPayload(msg.Payload))
	}
}

// ApplyVisibility shows or hides the overlay. Opening always starts with an
// empty save form.
func (o *Overlay) ApplyVisibility(display bool) {
	opening := display && !o.visible
	o.visible = display
	if display {
		o.nicknameInput = ""
		o.favURLInput = ""
		if opening {
			logging.Infof("UI opened by backend")
		}
		return
	}
	o.pending = nil
	logging.Infof("UI closed by backend")
}

// ApplyState replaces the connection state. A snapshot without any status
// fields leaves play status alone; a snapshot without volume leaves the slider
// alone.
func (o *Overlay) ApplyState(snap push.StateSnapshot) {
	if snap.HasStatus() {
		o.conn.Playing = snap.Playing != nil && *snap.Playing
		o.conn.URL = ""
		if snap.URL != nil {
			o.conn.URL = *snap.URL
		}
		if o.conn.Playing && o.conn.URL != "" {
			o.urlInput = o.conn.URL
		}
	}
	if snap.Volume != nil {
		v := ClampVolume(*snap.Volume)
		o.conn.Volume = v
		o.slider = v
		o.dragging = false
	}
}

// ApplyFavorites replaces the favorites collection and re-renders the list.
func (o *Overlay) ApplyFavorites(snap favorites.Snapshot) {
	view := favorites.Render(snap)
	for _, id := range view.Skipped {
		logging.Warnf("Skipping malformed favorite entry with id: %s", id)
	}
	o.favorites = view
}

// Visible reports whether the backend has the overlay open.
func (o *Overlay) Visible() bool { return o.visible }

// State returns the last pushed connection state.
func (o *Overlay) State() ConnectionState { return o.conn }

// StatusLabel is "Playing" or "Stopped".
func (o *Overlay) StatusLabel() string {
	if o.conn.Playing {
		return "Playing"
	}
	return "Stopped"
}

// Volume returns the slider value, which may be ahead of the backend while
// the user is dragging.
func (o *Overlay) Volume() float64 { return o.slider }

// Dragging reports whether a volume change has not been released yet.
func (o *Overlay) Dragging() bool { return o.dragging }

// VolumeLabel renders the slider value as a rounded percentage.
func (o *Overlay) VolumeLabel() string {
	return FormatVolume(o.slider)
}

// Favorites returns the current rendered favorites list.
func (o *Overlay) Favorites() favorites.View { return o.favorites }

// URLInput returns the main stream URL field.
func (o *Overlay) URLInput() string { return o.urlInput }

// SetURLInput replaces the main stream URL field.
func (o *Overlay) SetURLInput(s string) { o.urlInput = s }

// NicknameInput returns the save form's nickname field.
func (o *Overlay) NicknameInput() string { return o.nicknameInput }

// SetNicknameInput replaces the save form's nickname field.
func (o *Overlay) SetNicknameInput(s string) { o.nicknameInput = s }

// FavoriteURLInput returns the save form's URL field.
func (o *Overlay) FavoriteURLInput() string { return o.favURLInput }

// SetFavoriteURLInput replaces the save form's URL field.
func (o *Overlay) SetFavoriteURLInput(s string) { o.favURLInput = s }

// ClampVolume forces v into [0,1]. NaN becomes 0.
func ClampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FormatVolume renders a volume fraction as a rounded percentage.
func FormatVolume(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(ClampVolume(v)*100)))
}

func rawPayload(payload any) string {
	if raw, ok := payload.(json.RawMessage); ok {
		return string(raw)
	}
	return fmt.Sprintf("%v", payload)
}
