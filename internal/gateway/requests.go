package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/five82/carradio/internal/logging"
)

// Backend action names.
const (
	ActionPlay           = "play"
	ActionStop           = "stop"
	ActionSetVolume      = "setVolume"
	ActionSaveFavorite   = "saveFavorite"
	ActionDeleteFavorite = "deleteFavorite"
	ActionClose          = "close"
)

type validator interface {
	Validate() error
}

// PlayRequest starts playback of a stream.
type PlayRequest struct {
	URL    string  `json:"url"`
	Volume float64 `json:"volume"`
}

func (r PlayRequest) Validate() error {
	if !IsStreamURL(r.URL) {
		return &InputError{Action: ActionPlay, Field: "url", Prompt: PromptStreamURL}
	}
	if !validVolume(r.Volume) {
		return &InputError{Action: ActionPlay, Field: "volume", Prompt: PromptVolume}
	}
	return nil
}

// StopRequest stops playback.
type StopRequest struct{}

// VolumeRequest adjusts the playback volume.
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

func (r VolumeRequest) Validate() error {
	if !validVolume(r.Volume) {
		return &InputError{Action: ActionSetVolume, Field: "volume", Prompt: PromptVolume}
	}
	return nil
}

// SaveFavoriteRequest persists a favorite. Backends key favorites either by a
// nickname or by an explicit id; at least one must be present.
type SaveFavoriteRequest struct {
	Nickname string `json:"nickname,omitempty"`
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
}

func (r SaveFavoriteRequest) Validate() error {
	if strings.TrimSpace(r.Nickname) == "" && strings.TrimSpace(r.ID) == "" {
		return &InputError{Action: ActionSaveFavorite, Field: "nickname", Prompt: PromptFavorite}
	}
	if !IsStreamURL(r.URL) {
		return &InputError{Action: ActionSaveFavorite, Field: "url", Prompt: PromptFavorite}
	}
	return nil
}

// DeleteFavoriteRequest removes a favorite. FavUUID is used by backends that key
// favorites by generated ids, FavID by backends keyed by nickname.
type DeleteFavoriteRequest struct {
	FavID   string `json:"favId,omitempty"`
	FavUUID string `json:"favUUID,omitempty"`
}

func (r DeleteFavoriteRequest) Validate() error {
	if strings.TrimSpace(r.FavID) == "" && strings.TrimSpace(r.FavUUID) == "" {
		return &InputError{Action: ActionDeleteFavorite, Field: "id", Prompt: PromptFavoriteID}
	}
	return nil
}

// CloseRequest asks the backend to dismiss the overlay.
type CloseRequest struct{}

// IsStreamURL applies the same loose check the overlay always used: a
// non-empty value starting with "http".
func IsStreamURL(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed != "" && strings.HasPrefix(strings.ToLower(trimmed), "http")
}

func validVolume(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Call is an outbound action waiting to be dispatched.
type Call struct {
	Action  string
	Payload any
}

// Validate checks the payload without sending anything.
func (c Call) Validate() error {
	action := strings.TrimSpace(c.Action)
	if action == "" {
		return &InputError{Field: "action", Prompt: "action name is required"}
	}
	_, err := encodePayload(action, c.Payload)
	return err
}

// requestFor returns an empty typed request for actions whose payload has a
// fixed shape, along with the prompt shown when the payload cannot be read.
func requestFor(action string) (validator, string) {
	switch action {
	case ActionPlay:
		return &PlayRequest{}, PromptStreamURL
	case ActionSetVolume:
		return &VolumeRequest{}, PromptVolume
	case ActionSaveFavorite:
		return &SaveFavoriteRequest{}, PromptFavorite
	case ActionDeleteFavorite:
		return &DeleteFavoriteRequest{}, PromptFavoriteID
	default:
		return nil, ""
	}
}

// encodePayload marshals payload and, for known actions, decodes the result
// back into the action's request type and validates it. A map or a request
// built for another action is held to the same rules as the typed request.
func encodePayload(action string, payload any) ([]byte, error) {
	if v, ok := payload.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	body := []byte("{}")
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", action, err)
		}
		body = encoded
	}

	req, prompt := requestFor(action)
	if req == nil {
		return body, nil
	}
	if err := json.Unmarshal(body, req); err != nil {
		field := "payload"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
		}
		return nil, &InputError{Action: action, Field: field, Prompt: prompt}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return body, nil
}

// Outcome is the result of a dispatched call. Only diagnostics consume it.
type Outcome struct {
	Call   Call
	Result Result
	Err    error
}

// Dispatch invokes call and logs the outcome. Failures are diagnostics only:
// radio state never changes in response to an outcome.
func Dispatch(ctx context.Context, inv Invoker, call Call) Outcome {
	if inv == nil {
		return Outcome{Call: call, Err: errors.New("no backend configured")}
	}
	result, err := inv.Invoke(ctx, call.Action, call.Payload)
	out := Outcome{Call: call, Result: result, Err: err}

	var callErr *CallError
	var inputErr *InputError
	switch {
	case err == nil:
		logging.Debugf("%s acknowledged: %v", call.Action, map[string]any(result))
	case errors.As(err, &inputErr):
		logging.Warnf("%s rejected locally: %s", call.Action, inputErr.Prompt)
	case errors.As(err, &callErr) && callErr.Body != nil:
		logging.Errorf("%s failed: %v; body: %v", call.Action, err, callErr.Body)
	default:
		logging.Errorf("%s failed: %v", call.Action, err)
	}
	return out
}
