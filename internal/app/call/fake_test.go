package call

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fakeTrack struct {
	id      string
	kind    domain.MediaKind
	enabled atomic.Bool
	ended   atomic.Bool
}

func newFakeTrack(id string, kind domain.MediaKind) *fakeTrack {
	t := &fakeTrack{id: id, kind: kind}
	t.enabled.Store(true)
	return t
}

func (t *fakeTrack) ID() string             { return t.id }
func (t *fakeTrack) Kind() domain.MediaKind { return t.kind }
func (t *fakeTrack) Enabled() bool          { return t.enabled.Load() }
func (t *fakeTrack) SetEnabled(e bool)      { t.enabled.Store(e) }
func (t *fakeTrack) Stop()                  { t.ended.Store(true) }
func (t *fakeTrack) ReadyState() core.ReadyState {
	if t.ended.Load() {
		return core.ReadyStateEnded
	}
	return core.ReadyStateLive
}

func newFakeStream(id string) *core.Stream {
	return core.NewStream(id, newFakeTrack(id+"-video", domain.KindVideo), newFakeTrack(id+"-audio", domain.KindAudio))
}

type fakeTransport struct {
	h core.TransportHandlers

	mu             sync.Mutex
	signaling      webrtc.SignalingState
	local          *webrtc.SessionDescription
	remote         *webrtc.SessionDescription
	setRemoteCalls int
	applied        []webrtc.ICECandidateInit
	tracks         []core.Track
	closed         bool
	failCandidate  func(webrtc.ICECandidateInit) error
}

func (f *fakeTransport) AddTrack(t core.Track, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, t)
	return nil
}

func (f *fakeTransport) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "fake-offer"}, nil
}

func (f *fakeTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaling != webrtc.SignalingStateHaveRemoteOffer {
		return webrtc.SessionDescription{}, errors.New("no remote offer")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "fake-answer"}, nil
}

func (f *fakeTransport) SetLocalDescription(sd webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = &sd
	if sd.Type == webrtc.SDPTypeOffer {
		f.signaling = webrtc.SignalingStateHaveLocalOffer
	} else {
		f.signaling = webrtc.SignalingStateStable
	}
	return nil
}

func (f *fakeTransport) SetRemoteDescription(sd webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setRemoteCalls++
	f.remote = &sd
	if sd.Type == webrtc.SDPTypeOffer {
		f.signaling = webrtc.SignalingStateHaveRemoteOffer
	} else {
		f.signaling = webrtc.SignalingStateStable
	}
	return nil
}

func (f *fakeTransport) RemoteDescription() *webrtc.SessionDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote
}

func (f *fakeTransport) SignalingState() webrtc.SignalingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaling == webrtc.SignalingStateUnknown {
		return webrtc.SignalingStateStable
	}
	return f.signaling
}

func (f *fakeTransport) AddICECandidate(c webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == nil {
		return errors.New("remote description not set")
	}
	if f.failCandidate != nil {
		if err := f.failCandidate(c); err != nil {
			return err
		}
	}
	f.applied = append(f.applied, c)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) appliedCandidates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.applied))
	for _, c := range f.applied {
		out = append(out, c.Candidate)
	}
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) fireICE(s webrtc.ICEConnectionState) { f.h.OnICEConnectionStateChange(s) }

type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
}

func (f *fakeFactory) NewTransport(_ webrtc.Configuration, h core.TransportHandlers) (core.PeerTransport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t := &fakeTransport{h: h}
	f.transports = append(f.transports, t)
	return t, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

type captureSink struct {
	mu      sync.Mutex
	streams []*core.Stream
}

func (s *captureSink) Attach(st *core.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = append(s.streams, st)
}

func (s *captureSink) last() *core.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streams) == 0 {
		return nil
	}
	return s.streams[len(s.streams)-1]
}

type fixture struct {
	m          *Manager
	factory    *fakeFactory
	states     chan domain.CallState
	candidates chan webrtc.ICECandidateInit
}

func newFixture(t *testing.T, media core.MediaSource) *fixture {
	f := &fixture{
		factory:    &fakeFactory{},
		states:     make(chan domain.CallState, 64),
		candidates: make(chan webrtc.ICECandidateInit, 64),
	}
	f.m = New(Config{SessionID: t.Name(), TickInterval: 50 * time.Millisecond}, media, f.factory, Callbacks{
		OnStateChange:  func(s domain.CallState) { f.states <- s },
		OnICECandidate: func(c webrtc.ICECandidateInit) { f.candidates <- c },
	})
	t.Cleanup(f.m.Close)
	return f
}

func (f *fixture) transport(t *testing.T) *fakeTransport {
	pc, err := f.m.EnsurePeerConnection(nil)
	require.NoError(t, err)
	ft, ok := pc.(*fakeTransport)
	require.True(t, ok)
	return ft
}

func (f *fixture) waitState(t *testing.T, want domain.CallState) {
	t.Helper()
	select {
	case got := <-f.states:
		require.Equal(t, want, got)
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for state %s", want)
	}
}

func (f *fixture) requireNoState(t *testing.T) {
	t.Helper()
	select {
	case got := <-f.states:
		t.Fatalf("unexpected state %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func candidate(s string) webrtc.ICECandidateInit {
	mid := "0"
	idx := uint16(0)
	return webrtc.ICECandidateInit{Candidate: s, SDPMid: &mid, SDPMLineIndex: &idx}
}
