package rtc

import (
	"sync/atomic"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// remoteTrack exposes a received track. Packets are consumed until the
// sender goes away; the enabled flag is local only.
type remoteTrack struct {
	src      *webrtc.TrackRemote
	kind     domain.MediaKind
	disabled atomic.Bool
	ended    atomic.Bool
}

var _ core.Track = (*remoteTrack)(nil)

func newRemoteTrack(src *webrtc.TrackRemote) *remoteTrack {
	kind := domain.KindAudio
	if src.Kind() == webrtc.RTPCodecTypeVideo {
		kind = domain.KindVideo
	}
	return &remoteTrack{src: src, kind: kind}
}

func (t *remoteTrack) ID() string             { return t.src.ID() }
func (t *remoteTrack) Kind() domain.MediaKind { return t.kind }
func (t *remoteTrack) Enabled() bool          { return !t.disabled.Load() }
func (t *remoteTrack) SetEnabled(e bool)      { t.disabled.Store(!e) }
func (t *remoteTrack) Stop()                  { t.ended.Store(true) }

func (t *remoteTrack) ReadyState() core.ReadyState {
	if t.ended.Load() {
		return core.ReadyStateEnded
	}
	return core.ReadyStateLive
}

func (t *remoteTrack) loop(logger zerolog.Logger) {
	defer t.ended.Store(true)
	for {
		if _, _, err := t.src.ReadRTP(); err != nil {
			logger.Debug().Err(err).Str("track_id", t.src.ID()).Msg("remote track read stopped")
			return
		}
	}
}
