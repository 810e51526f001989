package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"musicapi/model"

	"github.com/google/uuid"
)

func seed(t *testing.T, repo TrackRepository, tracks ...*model.Track) {
	t.Helper()
	for _, tr := range tracks {
		if tr.ID == uuid.Nil {
			tr.ID = uuid.New()
		}
		if err := repo.Insert(context.Background(), tr); err != nil {
			t.Fatalf("Insert(%s) error = %v", tr.Song, err)
		}
	}
}

func TestMemoryInsertAndFind(t *testing.T) {
	repo := NewMemoryTrackRepository()
	ctx := context.Background()
	tr := &model.Track{Song: "Sweet Dreams", Artist: "Beyoncé", Danceability: 90}
	seed(t, repo, tr)

	got, err := repo.FindByID(ctx, tr.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID() = %v, %v", got, err)
	}
	if *got != *tr {
		t.Errorf("FindByID() = %+v, want %+v", got, tr)
	}

	// returned values are copies
	got.Song = "mutated"
	again, _ := repo.FindByID(ctx, tr.ID)
	if again.Song != "Sweet Dreams" {
		t.Errorf("stored track was mutated through a returned pointer")
	}

	if err := repo.Insert(ctx, &model.Track{ID: tr.ID, Song: "dup", Artist: "dup"}); !errors.Is(err, ErrConstraint) {
		t.Errorf("Insert(duplicate) error = %v, want ErrConstraint", err)
	}

	missing, err := repo.FindByID(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("FindByID(unknown) = %v, %v; want nil, nil", missing, err)
	}
}

func TestMemoryFindAllKeepsInsertionOrder(t *testing.T) {
	repo := NewMemoryTrackRepository()
	seed(t, repo,
		&model.Track{Song: "one", Artist: "a"},
		&model.Track{Song: "two", Artist: "a"},
		&model.Track{Song: "three", Artist: "a"},
	)

	all, err := repo.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	var songs []string
	for _, tr := range all {
		songs = append(songs, tr.Song)
	}
	if fmt.Sprint(songs) != "[one two three]" {
		t.Errorf("FindAll() order = %v, want [one two three]", songs)
	}
}

func TestMemorySaveVersioning(t *testing.T) {
	repo := NewMemoryTrackRepository()
	ctx := context.Background()
	tr := &model.Track{Song: "Coconut", Artist: "Manu Dibango"}
	seed(t, repo, tr)

	first, _ := repo.FindByID(ctx, tr.ID)
	second, _ := repo.FindByID(ctx, tr.ID)

	first.Song = "Soul Makossa"
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.Version != 2 {
		t.Errorf("Version = %d, want 2", first.Version)
	}

	second.Song = "lost update"
	if err := repo.Save(ctx, second); !errors.Is(err, ErrStaleTrack) {
		t.Errorf("Save(stale) error = %v, want ErrStaleTrack", err)
	}

	stored, _ := repo.FindByID(ctx, tr.ID)
	if stored.Song != "Soul Makossa" {
		t.Errorf("stored Song = %q, want %q", stored.Song, "Soul Makossa")
	}

	if err := repo.Save(ctx, &model.Track{ID: uuid.New(), Version: 1}); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Save(unknown) error = %v, want ErrTrackNotFound", err)
	}
}

func TestMemoryDeleteByID(t *testing.T) {
	repo := NewMemoryTrackRepository()
	ctx := context.Background()
	a := &model.Track{Song: "a", Artist: "x"}
	b := &model.Track{Song: "b", Artist: "x"}
	seed(t, repo, a, b)

	ok, err := repo.DeleteByID(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteByID() = %v, %v; want true, nil", ok, err)
	}
	ok, _ = repo.DeleteByID(ctx, a.ID)
	if ok {
		t.Error("second DeleteByID() = true, want false")
	}

	all, _ := repo.FindAll(ctx)
	if len(all) != 1 || all[0].ID != b.ID {
		t.Errorf("FindAll() after delete = %d tracks, want only b", len(all))
	}
}

func TestMemoryRankings(t *testing.T) {
	repo := NewMemoryTrackRepository()
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		seed(t, repo, &model.Track{Song: fmt.Sprintf("s%02d", i), Artist: "x", Danceability: i * 5, Energy: 100 - i*5})
	}

	top, _ := repo.TopByDanceability(ctx, 15)
	if len(top) != 15 {
		t.Fatalf("TopByDanceability() returned %d tracks, want 15", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i-1].Danceability < top[i].Danceability {
			t.Fatalf("TopByDanceability() not descending at %d", i)
		}
	}
	if top[0].Danceability != 95 {
		t.Errorf("top danceability = %d, want 95", top[0].Danceability)
	}

	low, _ := repo.BottomByEnergy(ctx, 15)
	if len(low) != 15 {
		t.Fatalf("BottomByEnergy() returned %d tracks, want 15", len(low))
	}
	for i := 1; i < len(low); i++ {
		if low[i-1].Energy > low[i].Energy {
			t.Fatalf("BottomByEnergy() not ascending at %d", i)
		}
	}
}

func TestMemoryRankingTieBreakByID(t *testing.T) {
	repo := NewMemoryTrackRepository()
	ctx := context.Background()
	hi := uuid.MustParse("ffffffff-0000-4000-8000-000000000000")
	lo := uuid.MustParse("00000000-0000-4000-8000-000000000000")
	seed(t, repo,
		&model.Track{ID: hi, Song: "hi", Artist: "x", Danceability: 50},
		&model.Track{ID: lo, Song: "lo", Artist: "x", Danceability: 50},
	)

	top, _ := repo.TopByDanceability(ctx, 15)
	if top[0].ID != lo || top[1].ID != hi {
		t.Errorf("tie order = %s, %s; want lower id first", top[0].Song, top[1].Song)
	}
}
