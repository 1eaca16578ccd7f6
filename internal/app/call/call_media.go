package call

import (
	"context"
	"errors"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
)

// AcquireMedia returns the local camera+microphone stream, capturing it on
// first use. A stream that still has a live track is returned as is; a stream
// whose tracks all ended is released and captured again. When preview is set
// it receives a video-only view of the stream.
func (m *Manager) AcquireMedia(ctx context.Context, preview core.Sink) (*core.Stream, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	local := m.local
	m.mu.Unlock()

	if local != nil {
		if local.HasLiveTrack() {
			return local, nil
		}
		m.logger.Info().Str("stream_id", local.ID()).Msg("local stream inactive, re-acquiring")
		m.StopMedia()
	}

	stream, err := m.capture(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("media access error")
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		stream.Stop()
		return nil, ErrManagerClosed
	}
	m.local = stream
	m.mu.Unlock()
	m.logger.Info().Str("stream_id", stream.ID()).Int("tracks", len(stream.Tracks())).Msg("local stream acquired")

	if preview != nil {
		preview.Attach(stream.VideoOnly())
	}
	return stream, nil
}

func (m *Manager) capture(ctx context.Context) (*core.Stream, error) {
	if !m.media.SecureContext() {
		return nil, domain.ErrMediaSecureContext
	}

	devices, err := m.media.EnumerateDevices(ctx)
	if err != nil {
		return nil, mapDeviceError(err)
	}
	var hasVideo, hasAudio bool
	for _, d := range devices {
		switch d.Kind {
		case core.DeviceVideoInput:
			hasVideo = true
		case core.DeviceAudioInput:
			hasAudio = true
		}
	}
	if !hasVideo {
		return nil, domain.ErrMediaNoCamera
	}
	if !hasAudio {
		return nil, domain.ErrMediaNoMic
	}

	stream, err := m.media.GetUserMedia(ctx, core.Constraints{Video: true, Audio: true})
	if err != nil {
		return nil, mapDeviceError(err)
	}
	return stream, nil
}

// mapDeviceError folds device failures into the media taxonomy. Anything
// else is returned unchanged.
func mapDeviceError(err error) error {
	var de *core.DeviceError
	if !errors.As(err, &de) {
		return err
	}
	switch de.Failure {
	case core.DeviceNotAllowed:
		return domain.ErrMediaPermission.WithCause(err)
	case core.DeviceNotFound:
		return domain.ErrMediaNoCamera.WithCause(err)
	case core.DeviceNotReadable:
		return domain.ErrMediaInUse.WithCause(err)
	}
	return err
}

// StopMedia stops and releases the local stream.
func (m *Manager) StopMedia() {
	m.mu.Lock()
	local := m.local
	m.local = nil
	m.mu.Unlock()
	if local == nil {
		return
	}
	local.Stop()
	m.logger.Info().Str("stream_id", local.ID()).Msg("local media stopped")
}

// ToggleMedia flips the enabled flag of the first local track of kind and
// returns the new flag. The track stays live, so the remote side keeps the
// track and receives no media while it is disabled.
func (m *Manager) ToggleMedia(kind domain.MediaKind) bool {
	m.mu.Lock()
	local := m.local
	m.mu.Unlock()
	if local == nil {
		return false
	}
	tracks := local.TracksOf(kind)
	if len(tracks) == 0 {
		return false
	}
	t := tracks[0]
	t.SetEnabled(!t.Enabled())
	enabled := t.Enabled()
	m.logger.Info().Str("kind", kind.String()).Bool("enabled", enabled).Msg("toggle media")
	return enabled
}

func (m *Manager) LocalStream() *core.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local
}

// RemoteStream is the container remote tracks accumulate in. It lives as
// long as the manager.
func (m *Manager) RemoteStream() *core.Stream { return m.remote }
