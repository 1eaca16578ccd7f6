package call

import (
	"github.com/dkeye/Call/internal/core"
	"github.com/pion/webrtc/v4"
)

// AddICECandidate applies a remote candidate, or queues it while the remote
// description is unset. Failures are logged and never returned: one bad
// candidate must not break the call.
func (m *Manager) AddICECandidate(c webrtc.ICECandidateInit) {
	if malformed(c) {
		m.logger.Warn().Msg("skipping malformed or empty ICE candidate")
		return
	}

	m.mu.Lock()
	pc := m.pc
	if pc == nil {
		m.mu.Unlock()
		m.logger.Debug().Msg("no peer connection, dropping ICE candidate")
		return
	}
	// keep arrival order: while a flush is pending or running, new
	// candidates go behind the queued ones
	if pc.RemoteDescription() == nil || m.flushing || len(m.pending) > 0 {
		m.pending = append(m.pending, c)
		n := len(m.pending)
		m.mu.Unlock()
		m.logger.Debug().Int("pending", n).Msg("remote description not set, queuing ICE candidate")
		return
	}
	m.mu.Unlock()
	m.applyCandidate(pc, c, false)
}

// ProcessPendingCandidates drains the queue in arrival order once a remote
// description is set.
func (m *Manager) ProcessPendingCandidates() {
	m.mu.Lock()
	pc := m.pc
	if pc == nil || pc.RemoteDescription() == nil || m.flushing {
		m.mu.Unlock()
		return
	}
	m.flushing = true
	n := len(m.pending)
	m.mu.Unlock()

	m.logger.Info().Int("count", n).Msg("processing pending ICE candidates")
	for {
		m.mu.Lock()
		if m.pc != pc || len(m.pending) == 0 {
			if m.pc == pc {
				m.flushing = false
			}
			m.mu.Unlock()
			return
		}
		c := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		m.applyCandidate(pc, c, true)
	}
}

func (m *Manager) applyCandidate(pc core.PeerTransport, c webrtc.ICECandidateInit, queued bool) {
	if err := pc.AddICECandidate(c); err != nil {
		m.logger.Error().Err(err).Bool("queued", queued).Str("candidate", c.Candidate).Msg("error adding ICE candidate")
	}
}

// malformed reports an empty candidate carrying neither mid nor m-line index.
func malformed(c webrtc.ICECandidateInit) bool {
	return c.Candidate == "" && c.SDPMid == nil && c.SDPMLineIndex == nil
}
