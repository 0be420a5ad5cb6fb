package radio

import (
	"fmt"
	"strings"

	"github.com/five82/carradio/internal/favorites"
	"github.com/five82/carradio/internal/gateway"
	"github.com/five82/carradio/internal/logging"
)

// Confirmation is a pending delete waiting for the user's answer. Token ties
// the answer to this particular request.
type Confirmation struct {
	Token  uint64
	ID     string
	Name   string
	Prompt string
}

// Play builds a play call for the URL input at the current slider volume.
func (o *Overlay) Play() (gateway.Call, error) {
	url := strings.TrimSpace(o.urlInput)
	req := gateway.PlayRequest{URL: url, Volume: ClampVolume(o.slider)}
	if err := req.Validate(); err != nil {
		return gateway.Call{}, err
	}
	logging.Infof("Play requested: %s at %s", url, FormatVolume(req.Volume))
	return gateway.Call{Action: gateway.ActionPlay, Payload: req}, nil
}

// Stop builds a stop call. Play status only changes once the backend pushes
// it.
func (o *Overlay) Stop() gateway.Call {
	return gateway.Call{Action: gateway.ActionStop, Payload: gateway.StopRequest{}}
}

// Close asks the backend to dismiss the overlay.
func (o *Overlay) Close() gateway.Call {
	return gateway.Call{Action: gateway.ActionClose, Payload: gateway.CloseRequest{}}
}

// Escape is Close while the overlay is visible and a no-op otherwise.
func (o *Overlay) Escape() (gateway.Call, bool) {
	if !o.visible {
		return gateway.Call{}, false
	}
	return o.Close(), true
}

// DragVolume moves the slider without telling the backend.
func (o *Overlay) DragVolume(v float64) {
	o.slider = ClampVolume(v)
	o.dragging = true
}

// NudgeVolume moves the slider by delta, as a keyboard drag.
func (o *Overlay) NudgeVolume(delta float64) {
	o.DragVolume(o.slider + delta)
}

// ReleaseVolume ends a drag and builds the setVolume call for the slider
// value.
func (o *Overlay) ReleaseVolume() gateway.Call {
	o.dragging = false
	return gateway.Call{
		Action:  gateway.ActionSetVolume,
		Payload: gateway.VolumeRequest{Volume: ClampVolume(o.slider)},
	}
}

// SaveFavorite builds a saveFavorite call from the save form. A valid attempt
// clears the form; the list itself only changes when the backend pushes it.
func (o *Overlay) SaveFavorite() (gateway.Call, error) {
	req := gateway.SaveFavoriteRequest{
		Nickname: strings.TrimSpace(o.nicknameInput),
		URL:      strings.TrimSpace(o.favURLInput),
	}
	if req.Nickname == "" {
		return gateway.Call{}, &gateway.InputError{
			Action: gateway.ActionSaveFavorite,
			Field:  "nickname",
			Prompt: gateway.PromptFavorite,
		}
	}
	if err := req.Validate(); err != nil {
		return gateway.Call{}, err
	}
	o.nicknameInput = ""
	o.favURLInput = ""
	logging.Infof("Saving favorite %q: %s", req.Nickname, req.URL)
	return gateway.Call{Action: gateway.ActionSaveFavorite, Payload: req}, nil
}

// Select copies a favorite's URL into the URL input. It does not start
// playback.
func (o *Overlay) Select(id string) bool {
	item, ok := o.favorites.Find(id)
	if !ok {
		return false
	}
	o.urlInput = item.URL
	logging.Infof("Selected favorite '%s', URL: %s", item.Name, item.URL)
	return true
}

// RequestDelete starts a delete confirmation for the favorite with id. Any
// earlier pending confirmation is replaced.
func (o *Overlay) RequestDelete(id string) (Confirmation, error) {
	item, ok := o.favorites.Find(id)
	if !ok {
		return Confirmation{}, &gateway.InputError{
			Action: gateway.ActionDeleteFavorite,
			Field:  "id",
			Prompt: gateway.PromptFavoriteID,
		}
	}
	o.nextToken++
	c := Confirmation{
		Token:  o.nextToken,
		ID:     item.ID,
		Name:   item.Name,
		Prompt: fmt.Sprintf("Are you sure you want to delete favorite %q?", item.Name),
	}
	o.pending = &c
	return c, nil
}

// Pending returns the confirmation awaiting an answer, if any.
func (o *Overlay) Pending() (Confirmation, bool) {
	if o.pending == nil {
		return Confirmation{}, false
	}
	return *o.pending, true
}

// ResolveDelete answers the pending confirmation. It yields a deleteFavorite
// call only when accepted is set, token matches the pending request, and the
// favorite is still listed. The item stays on screen until a favorites push
// drops it.
func (o *Overlay) ResolveDelete(token uint64, accepted bool) (gateway.Call, bool) {
	if o.pending == nil || o.pending.Token != token {
		return gateway.Call{}, false
	}
	c := *o.pending
	o.pending = nil
	if !accepted {
		logging.Debugf("Delete of favorite %q cancelled", c.Name)
		return gateway.Call{}, false
	}
	item, ok := o.favorites.Find(c.ID)
	if !ok {
		logging.Warnf("Favorite %q vanished before delete was confirmed", c.Name)
		return gateway.Call{}, false
	}
	logging.Infof("Deleting favorite %q", item.Name)
	return gateway.Call{Action: gateway.ActionDeleteFavorite, Payload: deleteRequest(item)}, true
}

func deleteRequest(item favorites.Item) gateway.DeleteFavoriteRequest {
	req := gateway.DeleteFavoriteRequest{FavUUID: item.ID}
	if item.Legacy {
		req.FavID = item.ID
	}
	return req
}
