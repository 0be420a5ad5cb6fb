// Package radio holds the overlay's UI state and turns user gestures into
// backend calls.
//
// The backend is authoritative. Overlay.Apply is the only path that changes
// what the overlay shows about playback, volume and favorites; control methods
// such as Play, SaveFavorite and ResolveDelete only build a gateway.Call for
// the caller to dispatch. A failed call is a diagnostic and never rolls state
// back, because nothing was changed optimistically in the first place.
//
// Deleting a favorite is a two-step exchange: RequestDelete hands out a
// Confirmation carrying a token, and ResolveDelete with that token produces the
// deleteFavorite call. Tokens from superseded requests are ignored.
package radio
