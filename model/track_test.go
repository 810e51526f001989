package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCopyFieldsFromKeepsIdentity(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	dst := &Track{ID: id, Song: "old", Artist: "old", Year: 1990, Version: 4, CreatedAt: created}
	src := &Track{
		ID: uuid.New(), Song: "Wuthering Heights", Artist: "Kate Bush", Year: 1978,
		Genre: "Art Rock", Description: "ethereal", DurationSec: 240, BPM: 130,
		Energy: 85, Danceability: 70, Version: 99,
	}

	dst.CopyFieldsFrom(src)

	if dst.ID != id {
		t.Errorf("ID = %s, want %s", dst.ID, id)
	}
	if dst.Version != 4 || !dst.CreatedAt.Equal(created) {
		t.Errorf("bookkeeping changed: version=%d created=%v", dst.Version, dst.CreatedAt)
	}
	want := *src
	want.ID, want.Version, want.CreatedAt = id, 4, created
	if *dst != want {
		t.Errorf("CopyFieldsFrom() = %+v, want %+v", *dst, want)
	}
}

func TestTrackJSONShape(t *testing.T) {
	tr := Track{ID: uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"), Song: "Coconut", DurationSec: 105, Version: 3}
	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{`"id":"7d444840-9dc0-11d1-b245-5ffdce74fad2"`, `"duration_sec":105`, `"danceability":0`} {
		if !strings.Contains(s, want) {
			t.Errorf("json = %s, missing %s", s, want)
		}
	}
	for _, hidden := range []string{"version", "created", "updated"} {
		if strings.Contains(strings.ToLower(s), hidden) {
			t.Errorf("json = %s, must not expose %s", s, hidden)
		}
	}
}
