package core

import "github.com/pion/webrtc/v4"

// TrackEvent is a remote track arrival. Streams lists the remote streams
// the track was announced with; it is empty for a bare track.
type TrackEvent struct {
	Track   Track
	Streams []*Stream
}

// TransportHandlers are bound when the transport is created so no early
// event is lost. Implementations may call them from any goroutine.
type TransportHandlers struct {
	OnICEConnectionStateChange func(webrtc.ICEConnectionState)
	// OnICECandidate is called for each gathered local candidate, never with
	// the end-of-gathering marker.
	OnICECandidate func(webrtc.ICECandidateInit)
	OnTrack        func(TrackEvent)
}

// PeerTransport is a single peer-to-peer connection.
type PeerTransport interface {
	AddTrack(t Track, streamID string) error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	// RemoteDescription returns nil until a remote description is applied.
	RemoteDescription() *webrtc.SessionDescription
	SignalingState() webrtc.SignalingState
	AddICECandidate(webrtc.ICECandidateInit) error
	Close() error
}

type TransportFactory interface {
	NewTransport(cfg webrtc.Configuration, h TransportHandlers) (PeerTransport, error)
}
