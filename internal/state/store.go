package state

import (
	"fmt"
	"sync"
	"time"
)

// maxCalls bounds the recent-call history kept for diagnostics.
const maxCalls = 20

// CallRecord is one dispatched backend call and how it ended.
type CallRecord struct {
	Action string
	At     time.Time
	Err    error
}

// Snapshot represents the latest link health and call history available to
// the UI.
type Snapshot struct {
	Connected           bool
	Endpoint            string
	ConnectedSince      time.Time
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed push connection attempts
	Messages            int
	LastMessageType     string
	LastMessageAt       time.Time
	Calls               []CallRecord // newest first
}

// IsOffline returns true when the push link has failed repeatedly.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// LastCall returns the most recent call, if any.
func (s Snapshot) LastCall() (CallRecord, bool) {
	if len(s.Calls) == 0 {
		return CallRecord{}, false
	}
	return s.Calls[0], true
}

// Store coordinates concurrent updates to the snapshot. The push stream
// goroutine reports link health; the UI reports call outcomes.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// LinkUp records a successful push connection and clears the failure count.
func (s *Store) LinkUp(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snapshot.Connected = true
	s.snapshot.Endpoint = endpoint
	s.snapshot.ConnectedSince = now
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = now
	s.snapshot.ConsecutiveFailures = 0
}

// LinkDown records a failed or dropped push connection. Everything else is
// kept so the UI can keep showing the last known state.
func (s *Store) LinkDown(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Connected = false
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
}

// RecordMessage notes that a push message of the given type arrived.
func (s *Store) RecordMessage(msgType string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Messages++
	s.snapshot.LastMessageType = msgType
	s.snapshot.LastMessageAt = at
}

// RecordCall adds a dispatched call to the history.
func (s *Store) RecordCall(action string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := CallRecord{Action: action, At: time.Now(), Err: err}
	calls := make([]CallRecord, 0, min(len(s.snapshot.Calls)+1, maxCalls))
	calls = append(calls, rec)
	for _, c := range s.snapshot.Calls {
		if len(calls) == maxCalls {
			break
		}
		calls = append(calls, c)
	}
	s.snapshot.Calls = calls
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Calls = cloneCalls(s.snapshot.Calls)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneCalls(calls []CallRecord) []CallRecord {
	if len(calls) == 0 {
		return nil
	}
	dup := make([]CallRecord, len(calls))
	copy(dup, calls)
	return dup
}
