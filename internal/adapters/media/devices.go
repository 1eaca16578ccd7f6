package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DeviceSource captures from real cameras and microphones. Drivers and
// encoders are registered by the binary, not here.
type DeviceSource struct {
	codecs *mediadevices.CodecSelector
	secure bool
	logger zerolog.Logger

	enumerate func() []mediadevices.MediaDeviceInfo
	capture   func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error)
}

func NewDeviceSource(codecs *mediadevices.CodecSelector, secure bool) *DeviceSource {
	return &DeviceSource{
		codecs:    codecs,
		secure:    secure,
		logger:    log.With().Str("module", "media").Str("source", "devices").Logger(),
		enumerate: mediadevices.EnumerateDevices,
		capture:   mediadevices.GetUserMedia,
	}
}

func (s *DeviceSource) SecureContext() bool { return s.secure }

func (s *DeviceSource) EnumerateDevices(context.Context) ([]core.DeviceInfo, error) {
	var out []core.DeviceInfo
	for _, d := range s.enumerate() {
		var kind core.DeviceKind
		switch d.Kind {
		case mediadevices.VideoInput:
			kind = core.DeviceVideoInput
		case mediadevices.AudioInput:
			kind = core.DeviceAudioInput
		case mediadevices.AudioOutput:
			kind = core.DeviceAudioOutput
		default:
			continue
		}
		out = append(out, core.DeviceInfo{ID: d.DeviceID, Kind: kind, Label: d.Label})
	}
	return out, nil
}

func (s *DeviceSource) GetUserMedia(ctx context.Context, c core.Constraints) (*core.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	constraints := mediadevices.MediaStreamConstraints{Codec: s.codecs}
	if c.Video {
		constraints.Video = func(mc *mediadevices.MediaTrackConstraints) {
			mc.Width = prop.Int(640)
			mc.Height = prop.Int(480)
			mc.FrameRate = prop.Float(30)
		}
	}
	if c.Audio {
		constraints.Audio = func(mc *mediadevices.MediaTrackConstraints) {
			mc.ChannelCount = prop.Int(1)
		}
	}

	ms, err := s.capture(constraints)
	if err != nil {
		return nil, s.classify(err, c)
	}

	stream := core.NewStream("")
	for _, mt := range ms.GetTracks() {
		t, err := wrapDeviceTrack(mt)
		if err != nil {
			for _, rest := range ms.GetTracks() {
				_ = rest.Close()
			}
			return nil, err
		}
		stream.AddTrack(t)
	}
	s.logger.Info().Str("stream_id", stream.ID()).Int("tracks", len(stream.Tracks())).Msg("devices captured")
	return stream, nil
}

// classify maps driver errors onto the device failure set. A device that
// vanished between probe and capture reads as not found.
func (s *DeviceSource) classify(err error, c core.Constraints) error {
	failure := core.DeviceFailureUnknown
	switch {
	case errors.Is(err, fs.ErrPermission):
		failure = core.DeviceNotAllowed
	case errors.Is(err, syscall.EBUSY):
		failure = core.DeviceNotReadable
	case !s.present(c):
		failure = core.DeviceNotFound
	}
	s.logger.Warn().Err(err).Str("failure", failure.String()).Msg("capture failed")
	return &core.DeviceError{Failure: failure, Err: err}
}

func (s *DeviceSource) present(c core.Constraints) bool {
	var video, audio bool
	for _, d := range s.enumerate() {
		switch d.Kind {
		case mediadevices.VideoInput:
			video = true
		case mediadevices.AudioInput:
			audio = true
		}
	}
	return (!c.Video || video) && (!c.Audio || audio)
}

func wrapDeviceTrack(mt mediadevices.Track) (*Track, error) {
	tl, ok := mt.(webrtc.TrackLocal)
	if !ok {
		return nil, fmt.Errorf("device track %s cannot be sent", mt.ID())
	}
	kind := domain.KindAudio
	if mt.Kind() == webrtc.RTPCodecTypeVideo {
		kind = domain.KindVideo
	}
	t := NewTrack(kind, tl, func() { _ = mt.Close() })
	mt.OnEnded(func(err error) {
		log.Info().Str("module", "media").Str("track_id", mt.ID()).AnErr("cause", err).Msg("device track ended")
		t.markEnded()
	})
	return t, nil
}
