package transcript

import (
	"sync"
	"time"
)

// Store holds the most recent meeting transcript. Exactly one transcript is
// retained: every successful upload overwrites the previous one
// (last-write-wins), and the chat handler reads whatever is current.
type Store struct {
	mu        sync.RWMutex
	text      string
	updatedAt time.Time
	updates   uint64
}

// NewStore creates an empty transcript store
func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored transcript unconditionally
func (s *Store) Set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	s.updatedAt = time.Now()
	s.updates++
}

// Get returns the current transcript and whether one has been stored
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.text, s.text != ""
}

// Info describes the current state of the store for monitoring endpoints
type Info struct {
	HasTranscript bool      `json:"has_transcript"`
	Length        int       `json:"length_chars"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
	Updates       uint64    `json:"updates_total"`
}

// GetInfo returns store statistics without exposing the transcript text
func (s *Store) GetInfo() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		HasTranscript: s.text != "",
		Length:        len(s.text),
		UpdatedAt:     s.updatedAt,
		Updates:       s.updates,
	}
}
