package call

import (
	"fmt"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/webrtc/v4"
)

// EnsurePeerConnection returns the session's transport, creating it on first
// call. Local tracks captured so far are attached for sending. remoteView,
// when set, is attached to the remote stream right away.
func (m *Manager) EnsurePeerConnection(remoteView core.Sink) (core.PeerTransport, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if m.pc != nil {
		pc := m.pc
		m.mu.Unlock()
		return pc, nil
	}

	m.pcGen++
	gen := m.pcGen
	pc, err := m.transports.NewTransport(m.rtcCfg, m.handlersFor(gen))
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	if m.local != nil {
		for _, t := range m.local.Tracks() {
			if err := pc.AddTrack(t, m.local.ID()); err != nil {
				_ = pc.Close()
				m.mu.Unlock()
				return nil, fmt.Errorf("add local %s track: %w", t.Kind(), err)
			}
		}
	}
	m.pc = pc
	m.mu.Unlock()

	m.logger.Info().Uint64("gen", gen).Msg("peer connection created")
	if remoteView != nil {
		remoteView.Attach(m.remote)
	}
	return pc, nil
}

func (m *Manager) handlersFor(gen uint64) core.TransportHandlers {
	return core.TransportHandlers{
		OnICEConnectionStateChange: func(s webrtc.ICEConnectionState) {
			m.enqueue(event{gen: gen, ice: s})
		},
		OnICECandidate: func(c webrtc.ICECandidateInit) {
			m.enqueue(event{gen: gen, candidate: &c})
		},
		OnTrack: func(te core.TrackEvent) {
			m.enqueue(event{gen: gen, track: &te})
		},
	}
}

func (m *Manager) peer() (core.PeerTransport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pc == nil {
		return nil, ErrNoPeerConnection
	}
	return m.pc, nil
}

// CreateOffer generates an offer and applies it as the local description.
func (m *Manager) CreateOffer() (webrtc.SessionDescription, error) {
	pc, err := m.peer()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	offer, err := pc.CreateOffer()
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local offer: %w", err)
	}
	return offer, nil
}

// HandleOffer runs the callee side: apply the remote offer, answer it and
// flush candidates buffered while no remote description was set.
func (m *Manager) HandleOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	pc, err := m.peer()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set remote offer: %w", err)
	}
	// the remote description is set from here on, so the queue must drain
	// even if answering fails
	defer m.ProcessPendingCandidates()

	answer, err := pc.CreateAnswer()
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local answer: %w", err)
	}
	return answer, nil
}

// HandleAnswer applies answer only while a local offer is outstanding.
// Late or duplicate answers are ignored without error.
func (m *Manager) HandleAnswer(answer webrtc.SessionDescription) error {
	m.mu.Lock()
	pc := m.pc
	m.mu.Unlock()
	if pc == nil || pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		m.logger.Debug().Msg("ignoring answer, no local offer pending")
		return nil
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	m.ProcessPendingCandidates()
	return nil
}

// ClosePC tears the transport down and drops buffered candidates. Closing a
// live transport moves the call to DISCONNECTED right away; observers hear
// about it through the usual state channel, behind events already queued.
func (m *Manager) ClosePC() {
	m.mu.Lock()
	gen := m.pcGen
	had := m.closePCLocked()
	if had {
		m.state = domain.CallDisconnected
	}
	m.mu.Unlock()
	if had {
		m.enqueue(event{gen: gen, ice: webrtc.ICEConnectionStateClosed, explicitClose: true})
	}
}

func (m *Manager) closePCLocked() bool {
	m.stopTimeoutLocked()
	m.pending = nil
	m.flushing = false
	if m.pc == nil {
		return false
	}
	pc := m.pc
	m.pc = nil
	if err := pc.Close(); err != nil {
		m.logger.Error().Err(err).Msg("close error")
	} else {
		m.logger.Info().Msg("peer connection closed")
	}
	return true
}
