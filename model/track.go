package model

import (
	"time"

	"github.com/google/uuid"
)

// Track represents a music track and its audio features.
type Track struct {
	ID           uuid.UUID `json:"id"`
	Song         string    `json:"song"`
	Artist       string    `json:"artist"`
	Year         int       `json:"year"`
	Genre        string    `json:"genre"`
	Description  string    `json:"description"`
	DurationSec  int       `json:"duration_sec"`
	BPM          int       `json:"bpm"`
	Energy       int       `json:"energy"`       // 0-100
	Danceability int       `json:"danceability"` // 0-100

	// Storage bookkeeping, not part of the API.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// CopyFieldsFrom overwrites every mutable field with the values from other.
// ID and storage bookkeeping are left untouched.
func (t *Track) CopyFieldsFrom(other *Track) {
	t.Song = other.Song
	t.Artist = other.Artist
	t.Year = other.Year
	t.Genre = other.Genre
	t.Description = other.Description
	t.DurationSec = other.DurationSec
	t.BPM = other.BPM
	t.Energy = other.Energy
	t.Danceability = other.Danceability
}

// Clone returns a copy of t.
func (t *Track) Clone() *Track {
	c := *t
	return &c
}
