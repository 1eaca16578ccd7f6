// Package media provides local tracks the call manager can send, and the
// sources that capture them.
package media

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

type trackState int32

const (
	trackStateEnabled trackState = iota // zero by default
	trackStateDisabled
	trackStateEnded
)

// Track is a local track whose packets are dropped while it is disabled or
// ended. The negotiated sender stays in place either way.
type Track struct {
	kind  domain.MediaKind
	src   webrtc.TrackLocal
	state atomic.Int32

	stopOnce sync.Once
	onStop   func()
}

var _ core.LocalTrack = (*Track)(nil)

// NewTrack gates src. onStop, when set, runs once when the track is stopped
// and should release whatever feeds src.
func NewTrack(kind domain.MediaKind, src webrtc.TrackLocal, onStop func()) *Track {
	return &Track{kind: kind, src: src, onStop: onStop}
}

func (t *Track) ID() string             { return t.src.ID() }
func (t *Track) Kind() domain.MediaKind { return t.kind }

func (t *Track) ReadyState() core.ReadyState {
	if t.getState() == trackStateEnded {
		return core.ReadyStateEnded
	}
	return core.ReadyStateLive
}

func (t *Track) Enabled() bool { return t.getState() == trackStateEnabled }

// SetEnabled has no effect on an ended track.
func (t *Track) SetEnabled(enabled bool) {
	next := trackStateDisabled
	if enabled {
		next = trackStateEnabled
	}
	for {
		cur := t.state.Load()
		if trackState(cur) == trackStateEnded {
			return
		}
		if t.state.CompareAndSwap(cur, int32(next)) {
			return
		}
	}
}

func (t *Track) Stop() {
	t.markEnded()
	t.stopOnce.Do(func() {
		if t.onStop != nil {
			t.onStop()
		}
	})
}

// markEnded flips the state without running onStop, for sources that end
// on their own.
func (t *Track) markEnded() { t.state.Store(int32(trackStateEnded)) }

func (t *Track) getState() trackState { return trackState(t.state.Load()) }

func (t *Track) passing() bool { return t.getState() == trackStateEnabled }

func (t *Track) TrackLocal() webrtc.TrackLocal { return &gatedTrackLocal{TrackLocal: t.src, t: t} }

// gatedTrackLocal hands the wrapped track a write stream that consults the
// gate on every packet.
type gatedTrackLocal struct {
	webrtc.TrackLocal
	t *Track
}

func (g *gatedTrackLocal) Bind(ctx webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	return g.TrackLocal.Bind(&gatedContext{TrackLocalContext: ctx, t: g.t})
}

// Unbind needs no unwrapping, bindings are matched by context id.
func (g *gatedTrackLocal) Unbind(ctx webrtc.TrackLocalContext) error {
	return g.TrackLocal.Unbind(ctx)
}

type gatedContext struct {
	webrtc.TrackLocalContext
	t *Track
}

func (c *gatedContext) WriteStream() webrtc.TrackLocalWriter {
	return &gatedWriter{w: c.TrackLocalContext.WriteStream(), t: c.t}
}

type gatedWriter struct {
	w webrtc.TrackLocalWriter
	t *Track
}

// WriteRTP reports dropped packets as written so the source keeps pacing.
func (g *gatedWriter) WriteRTP(header *rtp.Header, payload []byte) (int, error) {
	if !g.t.passing() {
		return header.MarshalSize() + len(payload), nil
	}
	return g.w.WriteRTP(header, payload)
}

func (g *gatedWriter) Write(b []byte) (int, error) {
	if !g.t.passing() {
		return len(b), nil
	}
	return g.w.Write(b)
}
