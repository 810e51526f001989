package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"musicapi/model"

	"github.com/google/uuid"
)

// memoryTrackRepository keeps tracks in process. Used for local runs and tests.
type memoryTrackRepository struct {
	mu     sync.RWMutex
	tracks map[uuid.UUID]*model.Track
	order  []uuid.UUID // insertion order
}

// NewMemoryTrackRepository creates an empty in-memory TrackRepository.
func NewMemoryTrackRepository() TrackRepository {
	return &memoryTrackRepository{tracks: make(map[uuid.UUID]*model.Track)}
}

func (r *memoryTrackRepository) Insert(_ context.Context, track *model.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tracks[track.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrConstraint, track.ID)
	}
	now := time.Now().UTC()
	track.Version = 1
	track.CreatedAt = now
	track.UpdatedAt = now

	r.tracks[track.ID] = track.Clone()
	r.order = append(r.order, track.ID)
	return nil
}

func (r *memoryTrackRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tracks[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (r *memoryTrackRepository) FindAll(_ context.Context) ([]*model.Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tracks := make([]*model.Track, 0, len(r.order))
	for _, id := range r.order {
		tracks = append(tracks, r.tracks[id].Clone())
	}
	return tracks, nil
}

func (r *memoryTrackRepository) Save(_ context.Context, track *model.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tracks[track.ID]
	if !ok {
		return ErrTrackNotFound
	}
	if stored.Version != track.Version {
		return ErrStaleTrack
	}

	track.Version++
	track.UpdatedAt = time.Now().UTC()
	track.CreatedAt = stored.CreatedAt
	r.tracks[track.ID] = track.Clone()
	return nil
}

func (r *memoryTrackRepository) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tracks[id]; !ok {
		return false, nil
	}
	delete(r.tracks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *memoryTrackRepository) TopByDanceability(ctx context.Context, limit int) ([]*model.Track, error) {
	return r.ranked(ctx, limit, func(a, b *model.Track) bool {
		if a.Danceability != b.Danceability {
			return a.Danceability > b.Danceability
		}
		return a.ID.String() < b.ID.String()
	})
}

func (r *memoryTrackRepository) BottomByEnergy(ctx context.Context, limit int) ([]*model.Track, error) {
	return r.ranked(ctx, limit, func(a, b *model.Track) bool {
		if a.Energy != b.Energy {
			return a.Energy < b.Energy
		}
		return a.ID.String() < b.ID.String()
	})
}

func (r *memoryTrackRepository) ranked(ctx context.Context, limit int, less func(a, b *model.Track) bool) ([]*model.Track, error) {
	tracks, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tracks, func(i, j int) bool { return less(tracks[i], tracks[j]) })
	if limit >= 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

func (r *memoryTrackRepository) Ping(context.Context) error {
	return nil
}
