package core

import (
	"context"
	"fmt"

	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/webrtc/v4"
)

//go:generate mockgen -destination mock_core/mock_core.go github.com/dkeye/Call/internal/core MediaSource

type ReadyState string

const (
	ReadyStateLive  ReadyState = "live"
	ReadyStateEnded ReadyState = "ended"
)

// Track is a single media track, local or remote.
type Track interface {
	ID() string
	Kind() domain.MediaKind
	ReadyState() ReadyState
	// Enabled reports whether media flows. A disabled track stays live.
	Enabled() bool
	SetEnabled(bool)
	// Stop ends the track for good.
	Stop()
}

// LocalTrack is a track the peer transport can send.
type LocalTrack interface {
	Track
	TrackLocal() webrtc.TrackLocal
}

type DeviceKind string

const (
	DeviceVideoInput  DeviceKind = "videoinput"
	DeviceAudioInput  DeviceKind = "audioinput"
	DeviceAudioOutput DeviceKind = "audiooutput"
)

type DeviceInfo struct {
	ID    string
	Kind  DeviceKind
	Label string
}

type Constraints struct {
	Video bool
	Audio bool
}

// MediaSource is the device capability layer (camera and microphone).
type MediaSource interface {
	// SecureContext reports whether capture is allowed at all.
	SecureContext() bool
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	GetUserMedia(ctx context.Context, c Constraints) (*Stream, error)
}

// DeviceFailure is the closed set of capture failures a MediaSource reports.
type DeviceFailure int

const (
	DeviceFailureUnknown DeviceFailure = iota
	DeviceNotAllowed
	DeviceNotFound
	DeviceNotReadable
)

func (f DeviceFailure) String() string {
	switch f {
	case DeviceNotAllowed:
		return "not-allowed"
	case DeviceNotFound:
		return "not-found"
	case DeviceNotReadable:
		return "not-readable"
	default:
		return "unknown"
	}
}

type DeviceError struct {
	Failure DeviceFailure
	Err     error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return "device " + e.Failure.String()
	}
	return fmt.Sprintf("device %s: %v", e.Failure, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Sink renders a stream, e.g. a preview surface owned by the host UI.
type Sink interface {
	Attach(s *Stream)
}
