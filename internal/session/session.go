// Package session tracks viewer-address discovery and liveness for one
// streaming session (spec.md §4.8, §7's "SessionState"): the single piece
// of mutable state shared between the control thread (writer) and the
// worker threads (readers) that need to know where to send.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StreamTimeout is how long a receiver tolerates silence before resetting
// its displayed frame and reassembler watermarks (spec.md §4.6).
const StreamTimeout = 2 * time.Second

// PunchInterval is how often each side emits a PUNCH to the other's known
// address (spec.md §4.8).
const PunchInterval = 500 * time.Millisecond

// State holds the viewer address a Host has discovered via inbound PUNCH
// packets, and the last-seen time used for stream-timeout detection. The
// zero value is a valid, viewer-less state.
type State struct {
	mu sync.RWMutex

	viewerAddr  *net.UDPAddr
	hasViewer   bool
	lastSeen    time.Time
	sessionID   string
	onNewViewer func(addr *net.UDPAddr)
}

// New creates an empty session State. onNewViewer, if non-nil, is invoked
// (outside the lock) whenever a PUNCH arrives from a source address that
// differs from the currently-recorded viewer address — the forced-
// keyframe signal spec.md §4.8's scenario 4 describes.
func New(onNewViewer func(addr *net.UDPAddr)) *State {
	return &State{onNewViewer: onNewViewer}
}

// ObservePunch records addr as the authoritative viewer address if it
// differs from what's currently recorded, firing onNewViewer in that case.
// Any inbound PUNCH, regardless of source, refreshes the liveness clock.
func (s *State) ObservePunch(addr *net.UDPAddr) {
	s.mu.Lock()
	changed := !s.hasViewer || !addrEqual(s.viewerAddr, addr)
	if changed {
		s.viewerAddr = addr
		s.hasViewer = true
		s.sessionID = uuid.NewString()
	}
	s.lastSeen = time.Now()
	s.mu.Unlock()

	if changed && s.onNewViewer != nil {
		s.onNewViewer(addr)
	}
}

// Touch refreshes the liveness clock without changing the viewer address,
// used for any inbound packet (VIDEO/AUDIO/METADATA/KEEPALIVE) on the
// receiver side where the sender's address is informational only.
func (s *State) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// ViewerAddr returns the currently-recorded viewer address, if any.
func (s *State) ViewerAddr() (*net.UDPAddr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewerAddr, s.hasViewer
}

// SessionID returns the correlation id assigned to the current viewer
// attach, empty if no viewer has ever attached.
func (s *State) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// TimedOut reports whether more than StreamTimeout has elapsed since the
// last observed packet of any kind.
func (s *State) TimedOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSeen.IsZero() {
		return false
	}
	return time.Since(s.lastSeen) > StreamTimeout
}

// Clear drops the recorded viewer and liveness state, used after a
// stream-timeout reset.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewerAddr = nil
	s.hasViewer = false
	s.lastSeen = time.Time{}
	s.sessionID = ""
}

func addrEqual(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
