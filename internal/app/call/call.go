// Package call implements the call session manager: one local media stream,
// one peer transport, ICE candidate buffering and the connection countdown,
// reconciled into a single state machine.
package call

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/mb/v3"
	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoPeerConnection = errors.New("peer connection not created")
	ErrManagerClosed    = errors.New("call manager closed")
)

const defaultTickInterval = time.Second

type Config struct {
	// SessionID tags logs and snapshots. Generated when empty.
	SessionID  string
	ICEServers []webrtc.ICEServer
	// TickInterval is the countdown step. Defaults to one second.
	TickInterval time.Duration
}

// Callbacks are invoked from the manager's dispatcher goroutine, one at a
// time and in the order the transport produced the underlying events.
type Callbacks struct {
	OnStateChange  func(domain.CallState)
	OnICECandidate func(webrtc.ICECandidateInit)
}

type Manager struct {
	sid        string
	rtcCfg     webrtc.Configuration
	media      core.MediaSource
	transports core.TransportFactory
	cb         Callbacks
	tick       time.Duration
	logger     zerolog.Logger

	mu        sync.Mutex
	state     domain.CallState
	local     *core.Stream
	remote    *core.Stream
	pc        core.PeerTransport
	pcGen     uint64
	pending   []webrtc.ICECandidateInit
	flushing  bool
	countdown *countdown
	closed    bool

	queue *mb.MB[event]
	done  chan struct{}
	// dispatching is set while the dispatcher handles an event, callbacks
	// included
	dispatching atomic.Bool

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}
}

// event is a transport signal waiting for the dispatcher. gen identifies the
// transport that produced it.
type event struct {
	gen           uint64
	ice           webrtc.ICEConnectionState
	explicitClose bool
	candidate     *webrtc.ICECandidateInit
	track         *core.TrackEvent
}

func New(cfg Config, media core.MediaSource, transports core.TransportFactory, cb Callbacks) *Manager {
	sid := cfg.SessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}
	m := &Manager{
		sid:        sid,
		rtcCfg:     webrtc.Configuration{ICEServers: cfg.ICEServers},
		media:      media,
		transports: transports,
		cb:         cb,
		tick:       tick,
		logger:     log.With().Str("module", "call").Str("sid", sid).Logger(),
		state:      domain.CallWaiting,
		remote:     core.NewStream(""),
		queue:      mb.New[event](0),
		done:       make(chan struct{}),
		subs:       make(map[*Subscription]struct{}),
	}
	go m.run()
	return m
}

func (m *Manager) SessionID() string { return m.sid }

func (m *Manager) State() domain.CallState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close stops the dispatcher, the transport and local media. Close does not
// wait for an event the dispatcher is already handling, so it may be called
// from a callback; no event after that one is dispatched.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.closePCLocked()
	local := m.local
	m.local = nil
	m.mu.Unlock()

	if local != nil {
		local.Stop()
	}
	_ = m.queue.Close()
	if !m.dispatching.Load() {
		<-m.done
	}

	m.subsMu.Lock()
	subs := m.subs
	m.subs = make(map[*Subscription]struct{})
	m.subsMu.Unlock()
	for s := range subs {
		_ = s.q.Close()
	}
	m.logger.Info().Msg("call manager closed")
}

func (m *Manager) enqueue(ev event) {
	if err := m.queue.Add(context.Background(), ev); err != nil {
		m.logger.Debug().Err(err).Msg("event dropped")
	}
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		ev, err := m.queue.WaitOne(context.Background())
		if err != nil {
			return
		}
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}
		m.dispatching.Store(true)
		switch {
		case ev.candidate != nil:
			m.onLocalCandidate(ev)
		case ev.track != nil:
			m.onRemoteTrack(ev)
		default:
			m.onICEState(ev)
		}
		m.dispatching.Store(false)
	}
}

// current reports whether gen is the live transport. Callers hold m.mu.
func (m *Manager) current(gen uint64) bool {
	return m.pc != nil && gen == m.pcGen
}

func (m *Manager) onICEState(ev event) {
	if ev.explicitClose {
		// ClosePC already applied the state. A transport created since
		// then must keep its countdown.
		m.notifyState(ev.ice, domain.CallDisconnected)
		return
	}

	m.mu.Lock()
	if !m.current(ev.gen) {
		m.mu.Unlock()
		m.logger.Debug().Str("ice_state", ev.ice.String()).Msg("ignoring ICE state of stale transport")
		return
	}

	var next domain.CallState
	switch ev.ice {
	case webrtc.ICEConnectionStateChecking:
		next = domain.CallConnecting
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		next = domain.CallConnected
	case webrtc.ICEConnectionStateFailed:
		next = domain.CallError
	case webrtc.ICEConnectionStateDisconnected, webrtc.ICEConnectionStateClosed:
		m.closePCLocked()
		next = domain.CallDisconnected
	default:
		m.mu.Unlock()
		return
	}
	m.setStateLocked(next)
	m.mu.Unlock()
	m.notifyState(ev.ice, next)
}

func (m *Manager) notifyState(ice webrtc.ICEConnectionState, next domain.CallState) {
	m.logger.Info().Str("ice_state", ice.String()).Str("state", next.String()).Msg("call state")
	if m.cb.OnStateChange != nil {
		m.cb.OnStateChange(next)
	}
	m.publish(Event{Kind: EventState, State: next})
}

// setStateLocked records next and cancels the countdown when leaving
// CONNECTING, before any observer sees the new state.
func (m *Manager) setStateLocked(next domain.CallState) {
	m.state = next
	if next != domain.CallConnecting {
		m.stopTimeoutLocked()
	}
}

func (m *Manager) onLocalCandidate(ev event) {
	m.mu.Lock()
	live := m.current(ev.gen)
	m.mu.Unlock()
	if !live {
		return
	}
	if m.cb.OnICECandidate != nil {
		m.cb.OnICECandidate(*ev.candidate)
	}
	m.publish(Event{Kind: EventCandidate, Candidate: ev.candidate})
}

func (m *Manager) onRemoteTrack(ev event) {
	m.mu.Lock()
	live := m.current(ev.gen)
	m.mu.Unlock()
	if !live {
		return
	}
	te := ev.track
	if len(te.Streams) > 0 {
		for _, t := range te.Streams[0].Tracks() {
			m.remote.AddTrack(t)
		}
	} else {
		m.remote.AddTrack(te.Track)
	}
	m.logger.Info().
		Str("kind", te.Track.Kind().String()).
		Str("track_id", te.Track.ID()).
		Int("remote_tracks", len(m.remote.Tracks())).
		Msg("remote track added")
	m.publish(Event{Kind: EventTrack, TrackID: te.Track.ID(), TrackKind: te.Track.Kind()})
}
