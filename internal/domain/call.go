// Package domain contains call entities without logic, just meta-data
package domain

// CallState is the externally visible state of a call session.
type CallState string

const (
	CallWaiting      CallState = "WAITING"
	CallConnecting   CallState = "CONNECTING"
	CallConnected    CallState = "CONNECTED"
	CallDisconnected CallState = "DISCONNECTED"
	CallError        CallState = "ERROR"
)

func (s CallState) String() string { return string(s) }

// MediaKind selects a track family inside a stream.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

func (k MediaKind) String() string { return string(k) }
