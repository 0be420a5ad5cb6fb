package devbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/five82/carradio/internal/gateway"
)

// errUnknownAction is returned for action names the backend does not serve.
var errUnknownAction = errors.New("unknown action")

// actionError is a rejected action; Status becomes the HTTP status.
type actionError struct {
	Status int
	Reason string
}

func (e *actionError) Error() string { return e.Reason }

type favorite struct {
	Nickname string `json:"nickname"`
	URL      string `json:"url"`
}

// Radio is the backend's authoritative state. Every mutation returns the push
// messages that describe the new state.
type Radio struct {
	mu        sync.Mutex
	display   bool
	playing   bool
	url       string
	volume    float64
	favorites map[string]favorite
	newID     func() string
}

// NewRadio returns a visible, stopped radio at half volume.
func NewRadio() *Radio {
	return &Radio{
		display:   true,
		volume:    0.5,
		favorites: make(map[string]favorite),
		newID:     func() string { return uuid.NewString() },
	}
}

// Snapshot returns the full set of messages a newly connected client needs.
func (r *Radio) Snapshot() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return [][]byte{r.uiMessage(), r.stateMessage(true), r.favoritesMessage()}
}

// SetDisplay shows or hides the overlay.
func (r *Radio) SetDisplay(display bool) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.display = display
	return [][]byte{r.uiMessage()}
}

// Apply runs one action. The returned messages must be broadcast to every
// push client.
func (r *Radio) Apply(action string, body []byte) ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch action {
	case gateway.ActionPlay:
		var req gateway.PlayRequest
		if err := decodeBody(body, &req); err != nil {
			return nil, err
		}
		url := strings.TrimSpace(req.URL)
		if !gateway.IsStreamURL(url) {
			return nil, &actionError{Status: 400, Reason: "invalid stream url"}
		}
		r.playing = true
		r.url = url
		r.volume = clamp(req.Volume)
		return [][]byte{r.stateMessage(true)}, nil

	case gateway.ActionStop:
		r.playing = false
		r.url = ""
		return [][]byte{r.stateMessage(true)}, nil

	case gateway.ActionSetVolume:
		var req gateway.VolumeRequest
		if err := decodeBody(body, &req); err != nil {
			return nil, err
		}
		r.volume = clamp(req.Volume)
		return [][]byte{r.stateMessage(false)}, nil

	case gateway.ActionSaveFavorite:
		var req gateway.SaveFavoriteRequest
		if err := decodeBody(body, &req); err != nil {
			return nil, err
		}
		nickname := strings.TrimSpace(req.Nickname)
		if nickname == "" {
			nickname = strings.TrimSpace(req.ID)
		}
		url := strings.TrimSpace(req.URL)
		if nickname == "" || !gateway.IsStreamURL(url) {
			return nil, &actionError{Status: 400, Reason: "nickname and stream url are required"}
		}
		r.favorites[r.newID()] = favorite{Nickname: nickname, URL: url}
		return [][]byte{r.favoritesMessage()}, nil

	case gateway.ActionDeleteFavorite:
		var req gateway.DeleteFavoriteRequest
		if err := decodeBody(body, &req); err != nil {
			return nil, err
		}
		id, ok := r.lookupFavorite(req)
		if !ok {
			return nil, &actionError{Status: 404, Reason: "favorite not found"}
		}
		delete(r.favorites, id)
		return [][]byte{r.favoritesMessage()}, nil

	case gateway.ActionClose:
		r.display = false
		return [][]byte{r.uiMessage()}, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnknownAction, action)
}

// lookupFavorite resolves favUUID by key and favId by key or nickname.
func (r *Radio) lookupFavorite(req gateway.DeleteFavoriteRequest) (string, bool) {
	if id := strings.TrimSpace(req.FavUUID); id != "" {
		if _, ok := r.favorites[id]; ok {
			return id, true
		}
	}
	name := strings.TrimSpace(req.FavID)
	if name == "" {
		return "", false
	}
	if _, ok := r.favorites[name]; ok {
		return name, true
	}
	for id, fav := range r.favorites {
		if fav.Nickname == name {
			return id, true
		}
	}
	return "", false
}

func (r *Radio) uiMessage() []byte {
	return mustMarshal(map[string]any{"type": "ui", "display": r.display})
}

// stateMessage reports the volume, plus play status when withStatus is set.
func (r *Radio) stateMessage(withStatus bool) []byte {
	st := map[string]any{"volume": r.volume}
	if withStatus {
		st["playing"] = r.playing
		if r.url != "" {
			st["url"] = r.url
		}
	}
	return mustMarshal(map[string]any{"type": "updateState", "state": st})
}

func (r *Radio) favoritesMessage() []byte {
	favs := make(map[string]favorite, len(r.favorites))
	for id, f := range r.favorites {
		favs[id] = f
	}
	return mustMarshal(map[string]any{"type": "favorites", "favorites": favs})
}

func decodeBody(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &actionError{Status: 400, Reason: "invalid JSON body"}
	}
	return nil
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal push message: %v", err))
	}
	return b
}
