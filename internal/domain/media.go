package domain

import "fmt"

type MediaErrorKind string

const (
	MediaSecureContext MediaErrorKind = "SECURE_CONTEXT"
	MediaNoCamera      MediaErrorKind = "NO_CAMERA"
	MediaNoMic         MediaErrorKind = "NO_MIC"
	MediaPermission    MediaErrorKind = "PERMISSION"
	MediaInUse         MediaErrorKind = "IN_USE"
)

// MediaError is a media acquisition failure the UI is expected to render.
// Err keeps the device-level cause, if any.
type MediaError struct {
	Kind MediaErrorKind
	Err  error
}

var (
	ErrMediaSecureContext = &MediaError{Kind: MediaSecureContext}
	ErrMediaNoCamera      = &MediaError{Kind: MediaNoCamera}
	ErrMediaNoMic         = &MediaError{Kind: MediaNoMic}
	ErrMediaPermission    = &MediaError{Kind: MediaPermission}
	ErrMediaInUse         = &MediaError{Kind: MediaInUse}
)

func (e *MediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media %s: %v", e.Kind, e.Err)
	}
	return "media " + string(e.Kind)
}

func (e *MediaError) Unwrap() error { return e.Err }

// Is matches any MediaError of the same kind, so callers can compare
// against the sentinels regardless of the wrapped cause.
func (e *MediaError) Is(target error) bool {
	t, ok := target.(*MediaError)
	return ok && t.Kind == e.Kind
}

// WithCause returns a copy of e carrying err as its cause.
func (e *MediaError) WithCause(err error) *MediaError {
	return &MediaError{Kind: e.Kind, Err: err}
}
