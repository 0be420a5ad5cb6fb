// Package state provides thread-safe link health and call history for the
// carradio front ends.
//
// # Overview
//
// The radio state itself (play status, volume, favorites) lives in
// radio.Overlay and is owned by the front end's event loop. This package holds
// the other half: how the push link is doing and which backend calls went out.
// The push stream goroutine writes link health; the event loop records call
// outcomes; the header and diagnostics pane read snapshots.
//
//	Push stream goroutine:           Event loop:
//	┌──────────────────┐            ┌──────────────────┐
//	│ dial             │            │ Dispatch(call)   │
//	│   ↓              │            │   ↓              │
//	│ store.LinkUp()   │            │ store.RecordCall │
//	│ store.LinkDown() │───────────→│ store.Snapshot() │
//	│   ↓              │  (mutex)   │   ↓              │
//	│ backoff, redial  │            │ render header    │
//	└──────────────────┘            └──────────────────┘
//
// # Core Types
//
// Store:
//   - Implements push.HealthRecorder
//   - Uses sync.RWMutex; the zero value is ready to use
//
// Snapshot:
//   - Copy of the state at a point in time
//   - Calls is newest first and bounded
//   - LastError is a wrapped copy, so errors.Is still matches the original
//
// # Update Semantics
//
//	store.LinkUp(endpoint)
//	→ Connected = true, ConsecutiveFailures = 0, LastError = nil
//
//	store.LinkDown(err)
//	→ Connected = false, ConsecutiveFailures++, LastError = err
//	→ everything else unchanged
//
// IsOffline reports true from the second consecutive failure on, matching
// the point where the header switches from "connecting" to "offline".
//
// Call outcomes are diagnostics only. Nothing in this package feeds back into
// radio state.
package state
