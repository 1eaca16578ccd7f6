package call

import (
	"context"
	"time"

	"github.com/cheggaaa/mb/v3"
	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/webrtc/v4"
)

type EventKind string

const (
	EventState     EventKind = "state"
	EventCandidate EventKind = "candidate"
	EventTrack     EventKind = "track"
)

// Event is what subscribers observe, in the same order the callbacks see it.
type Event struct {
	Kind      EventKind                `json:"kind"`
	State     domain.CallState         `json:"state,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	TrackID   string                   `json:"track_id,omitempty"`
	TrackKind domain.MediaKind         `json:"track_kind,omitempty"`
	At        time.Time                `json:"at"`
}

// Subscription is an unbounded event queue the caller drains with Next.
type Subscription struct {
	m *Manager
	q *mb.MB[Event]
}

func (m *Manager) Subscribe() *Subscription {
	s := &Subscription{m: m, q: mb.New[Event](0)}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		_ = s.q.Close()
		return s
	}
	m.subsMu.Lock()
	m.subs[s] = struct{}{}
	m.subsMu.Unlock()
	return s
}

// Next blocks until an event is available, ctx is done or the subscription
// is closed.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	return s.q.WaitOne(ctx)
}

func (s *Subscription) Close() {
	s.m.subsMu.Lock()
	delete(s.m.subs, s)
	s.m.subsMu.Unlock()
	_ = s.q.Close()
}

func (m *Manager) publish(ev Event) {
	ev.At = time.Now()
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for s := range m.subs {
		_ = s.q.Add(context.Background(), ev)
	}
}

type TrackInfo struct {
	ID         string           `json:"id"`
	Kind       domain.MediaKind `json:"kind"`
	ReadyState core.ReadyState  `json:"ready_state"`
	Enabled    bool             `json:"enabled"`
}

// Snapshot is a read-only view of a session for inspection.
type Snapshot struct {
	SessionID         string           `json:"session_id"`
	State             domain.CallState `json:"state"`
	PeerConnection    bool             `json:"peer_connection"`
	SignalingState    string           `json:"signaling_state,omitempty"`
	PendingCandidates int              `json:"pending_candidates"`
	TimeoutArmed      bool             `json:"timeout_armed"`
	Local             []TrackInfo      `json:"local_tracks"`
	Remote            []TrackInfo      `json:"remote_tracks"`
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	snap := Snapshot{
		SessionID:         m.sid,
		State:             m.state,
		PeerConnection:    m.pc != nil,
		PendingCandidates: len(m.pending),
		TimeoutArmed:      m.countdown != nil,
	}
	if m.pc != nil {
		snap.SignalingState = m.pc.SignalingState().String()
	}
	local := m.local
	m.mu.Unlock()

	snap.Local = []TrackInfo{}
	if local != nil {
		snap.Local = trackInfos(local)
	}
	snap.Remote = trackInfos(m.remote)
	return snap
}

func trackInfos(s *core.Stream) []TrackInfo {
	tracks := s.Tracks()
	out := make([]TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, TrackInfo{ID: t.ID(), Kind: t.Kind(), ReadyState: t.ReadyState(), Enabled: t.Enabled()})
	}
	return out
}
