package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

const (
	opusFrame = 20 * time.Millisecond
	vp8Frame  = 33 * time.Millisecond
)

var (
	// opus silence frame
	opusSilence = []byte{0xf8, 0xff, 0xfe}
	// smallest VP8 keyframe header the depacketizer accepts
	vp8Blank = []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a, 0x02, 0x00, 0x02, 0x00}
)

// StaticSource produces synthetic VP8 and Opus tracks in place of real
// devices. Devices and Secure shape what the manager sees when probing.
type StaticSource struct {
	Secure  bool
	Devices []core.DeviceInfo
	// Pump writes filler samples so the remote side sees RTP. Off by default.
	Pump bool

	mu  sync.Mutex
	err error
}

// NewStaticSource returns a secure source with one camera and one microphone.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		Secure: true,
		Devices: []core.DeviceInfo{
			{ID: "static-camera", Kind: core.DeviceVideoInput, Label: "Static camera"},
			{ID: "static-microphone", Kind: core.DeviceAudioInput, Label: "Static microphone"},
		},
	}
}

// FailWith makes the next captures fail with err until cleared with nil.
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticSource) SecureContext() bool { return s.Secure }

func (s *StaticSource) EnumerateDevices(context.Context) ([]core.DeviceInfo, error) {
	return append([]core.DeviceInfo(nil), s.Devices...), nil
}

func (s *StaticSource) GetUserMedia(_ context.Context, c core.Constraints) (*core.Stream, error) {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	streamID := uuid.NewString()
	stream := core.NewStream(streamID)
	if c.Video {
		t, err := s.newTrack(domain.KindVideo, streamID)
		if err != nil {
			return nil, err
		}
		stream.AddTrack(t)
	}
	if c.Audio {
		t, err := s.newTrack(domain.KindAudio, streamID)
		if err != nil {
			stream.Stop()
			return nil, err
		}
		stream.AddTrack(t)
	}
	log.Debug().Str("module", "media").Str("stream_id", streamID).Int("tracks", len(stream.Tracks())).Msg("static stream created")
	return stream, nil
}

func (s *StaticSource) newTrack(kind domain.MediaKind, streamID string) (*Track, error) {
	capability := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	frame, payload := vp8Frame, vp8Blank
	if kind == domain.KindAudio {
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
		frame, payload = opusFrame, opusSilence
	}
	src, err := webrtc.NewTrackLocalStaticSample(capability, kind.String()+"-"+uuid.NewString(), streamID)
	if err != nil {
		return nil, fmt.Errorf("new %s track: %w", kind, err)
	}

	done := make(chan struct{})
	t := NewTrack(kind, src, func() { close(done) })
	if s.Pump {
		go pump(src, frame, payload, done)
	}
	return t, nil
}

func pump(src *webrtc.TrackLocalStaticSample, frame time.Duration, payload []byte, done <-chan struct{}) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		if err := src.WriteSample(pionmedia.Sample{Data: payload, Duration: frame}); err != nil {
			log.Debug().Str("module", "media").Err(err).Str("track_id", src.ID()).Msg("static sample write error")
		}
	}
}
