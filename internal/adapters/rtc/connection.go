// Package rtc adapts pion peer connections to the call manager's transport.
package rtc

import (
	"fmt"
	"sync"

	"github.com/dkeye/Call/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Factory builds pion-backed transports sharing one API instance.
type Factory struct {
	api *webrtc.API
}

// NewFactory sets up the default codecs unless media is given, for example
// a media engine populated by a device codec selector.
func NewFactory(media *webrtc.MediaEngine, logLevel zerolog.Level) (*Factory, error) {
	if media == nil {
		media = &webrtc.MediaEngine{}
		if err := media.RegisterDefaultCodecs(); err != nil {
			return nil, fmt.Errorf("register codecs: %w", err)
		}
	}
	se := webrtc.SettingEngine{LoggerFactory: LoggerFactory{Level: logLevel}}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(media), webrtc.WithSettingEngine(se))
	return &Factory{api: api}, nil
}

func (f *Factory) NewTransport(cfg webrtc.Configuration, h core.TransportHandlers) (core.PeerTransport, error) {
	pc, err := f.api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &WebRTCConnection{
		pc:      pc,
		h:       h,
		streams: make(map[string]*core.Stream),
		logger:  log.With().Str("module", "webrtc").Logger(),
	}
	c.start()
	return c, nil
}

// WebRTCConnection is a core.PeerTransport over one pion peer connection.
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	h      core.TransportHandlers
	logger zerolog.Logger

	mu      sync.Mutex
	streams map[string]*core.Stream
}

var _ core.PeerTransport = (*WebRTCConnection)(nil)

func (c *WebRTCConnection) start() {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Info().Str("ice_state", s.String()).Msg("ICE state")
		if c.h.OnICEConnectionStateChange != nil {
			c.h.OnICEConnectionStateChange(s)
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Debug().Str("peer_connection_state", s.String()).Msg("Peer state")
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.h.OnICECandidate != nil {
			c.h.OnICECandidate(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")

		rt := newRemoteTrack(track)
		go rt.loop(c.logger)

		ev := core.TrackEvent{Track: rt}
		if sid := track.StreamID(); sid != "" {
			c.mu.Lock()
			st, ok := c.streams[sid]
			if !ok {
				st = core.NewStream(sid)
				c.streams[sid] = st
			}
			c.mu.Unlock()
			st.AddTrack(rt)
			ev.Streams = []*core.Stream{st}
		}
		if c.h.OnTrack != nil {
			c.h.OnTrack(ev)
		}
	})
}

// AddTrack sends t. The stream id is carried by the track itself.
func (c *WebRTCConnection) AddTrack(t core.Track, streamID string) error {
	lt, ok := t.(core.LocalTrack)
	if !ok {
		return fmt.Errorf("track %s is not sendable", t.ID())
	}
	tl := lt.TrackLocal()
	if tl.StreamID() != streamID {
		c.logger.Debug().Str("track_stream_id", tl.StreamID()).Str("stream_id", streamID).Msg("track announced under its own stream id")
	}
	sender, err := c.pc.AddTrack(tl)
	if err != nil {
		return err
	}
	// RTCP must be drained for the interceptors to run
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (c *WebRTCConnection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *WebRTCConnection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *WebRTCConnection) SetLocalDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(sd)
}

func (c *WebRTCConnection) SetRemoteDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sd)
}

func (c *WebRTCConnection) RemoteDescription() *webrtc.SessionDescription {
	return c.pc.RemoteDescription()
}

func (c *WebRTCConnection) SignalingState() webrtc.SignalingState {
	return c.pc.SignalingState()
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) Close() error {
	return c.pc.Close()
}
