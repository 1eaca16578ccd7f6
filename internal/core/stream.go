package core

import (
	"sync"

	"github.com/dkeye/Call/internal/domain"
	"github.com/google/uuid"
)

// Stream is an ordered set of tracks. It only grows through AddTrack.
type Stream struct {
	id     string
	mu     sync.RWMutex
	tracks []Track
}

func NewStream(id string, tracks ...Track) *Stream {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Stream{id: id}
	for _, t := range tracks {
		s.AddTrack(t)
	}
	return s
}

func (s *Stream) ID() string { return s.id }

// AddTrack appends t unless a track with the same id is already present.
func (s *Stream) AddTrack(t Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.tracks {
		if have.ID() == t.ID() {
			return false
		}
	}
	s.tracks = append(s.tracks, t)
	return true
}

func (s *Stream) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *Stream) TracksOf(kind domain.MediaKind) []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

func (s *Stream) VideoTracks() []Track { return s.TracksOf(domain.KindVideo) }
func (s *Stream) AudioTracks() []Track { return s.TracksOf(domain.KindAudio) }

func (s *Stream) HasLiveTrack() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tracks {
		if t.ReadyState() == ReadyStateLive {
			return true
		}
	}
	return false
}

// VideoOnly derives a new stream sharing this stream's video tracks.
func (s *Stream) VideoOnly() *Stream {
	return NewStream("", s.VideoTracks()...)
}

// Stop ends every track. The stream keeps its track list.
func (s *Stream) Stop() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
