package track

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musicapi/cache"
	"musicapi/logger"
	"musicapi/model"
	"musicapi/repository"

	"github.com/google/uuid"
)

// RankingLimit caps the size of both ranking reports.
const RankingLimit = 15

// Error kinds surfaced to callers. Check them with errors.Is.
var (
	ErrNotFound        = errors.New("track not found")
	ErrInvalidArgument = errors.New("invalid track")
	ErrConflict        = errors.New("track was modified concurrently")
)

// RankingCache is the optional report cache. *cache.RankingCache satisfies it.
// Get returns the generation it looked in; Set must be given that generation
// so a fill that raced with Invalidate is never served.
type RankingCache interface {
	Get(ctx context.Context, report string) ([]*model.Track, int64, bool, error)
	Set(ctx context.Context, report string, gen int64, tracks []*model.Track) error
	Invalidate(ctx context.Context) error
}

// rejectedByStore is returned to clients in place of the driver's message.
const rejectedByStore = "a field value was rejected by the store (too long, out of range or duplicate)"

// Service implements the track use cases on top of a TrackRepository.
type Service struct {
	repo  repository.TrackRepository
	cache RankingCache
}

// NewService wires the service. rankings may be nil to disable caching.
func NewService(repo repository.TrackRepository, rankings RankingCache) *Service {
	return &Service{repo: repo, cache: rankings}
}

// GetAll returns every track in stored order.
func (s *Service) GetAll(ctx context.Context) ([]*model.Track, error) {
	tracks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

// GetByID returns the track or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*model.Track, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// Create validates input and stores it under a freshly generated id.
// Any id carried by input is ignored.
func (s *Service) Create(ctx context.Context, input *model.Track) (*model.Track, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	t := &model.Track{ID: uuid.New()}
	t.CopyFieldsFrom(input)

	if err := s.repo.Insert(ctx, t); err != nil {
		if errors.Is(err, repository.ErrConstraint) {
			logger.Warn("Store rejected new track", logger.Stringer("trackId", t.ID), logger.ErrorField(err))
			return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, rejectedByStore)
		}
		return nil, fmt.Errorf("failed to create track: %w", err)
	}

	logger.Info("Track created",
		logger.Stringer("trackId", t.ID),
		logger.String("song", t.Song),
		logger.String("artist", t.Artist))
	s.invalidate(ctx)
	return t, nil
}

// Update replaces every mutable field of the stored track with patch.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch *model.Track) (*model.Track, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validate(patch); err != nil {
		return nil, err
	}

	t.CopyFieldsFrom(patch)

	if err := s.repo.Save(ctx, t); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleTrack):
			return nil, fmt.Errorf("%w: %s", ErrConflict, id)
		case errors.Is(err, repository.ErrTrackNotFound):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		case errors.Is(err, repository.ErrConstraint):
			logger.Warn("Store rejected track update", logger.Stringer("trackId", id), logger.ErrorField(err))
			return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, rejectedByStore)
		}
		return nil, fmt.Errorf("failed to update track %s: %w", id, err)
	}

	logger.Info("Track updated", logger.Stringer("trackId", id), logger.Int64("version", t.Version))
	s.invalidate(ctx)
	return t, nil
}

// Delete removes the track or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete track %s: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	logger.Info("Track deleted", logger.Stringer("trackId", id))
	s.invalidate(ctx)
	return nil
}

// GetTopDanceability returns up to RankingLimit tracks, most danceable first.
func (s *Service) GetTopDanceability(ctx context.Context) ([]*model.Track, error) {
	return s.report(ctx, cache.ReportHighDanceability, s.repo.TopByDanceability)
}

// GetLowEnergy returns up to RankingLimit tracks, lowest energy first.
func (s *Service) GetLowEnergy(ctx context.Context) ([]*model.Track, error) {
	return s.report(ctx, cache.ReportLowEnergy, s.repo.BottomByEnergy)
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) report(ctx context.Context, name string, query func(context.Context, int) ([]*model.Track, error)) ([]*model.Track, error) {
	var gen int64
	cacheable := false
	if s.cache != nil {
		tracks, g, ok, err := s.cache.Get(ctx, name)
		switch {
		case err != nil:
			logger.Warn("Ranking cache read failed", logger.String("report", name), logger.ErrorField(err))
		case ok:
			return tracks, nil
		default:
			gen, cacheable = g, true
		}
	}

	// the generation is read before the query; a write in between retires it
	tracks, err := query(ctx, RankingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s report: %w", name, err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, name, gen, tracks); err != nil {
			logger.Warn("Ranking cache write failed", logger.String("report", name), logger.ErrorField(err))
		}
	}
	return tracks, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("Ranking cache invalidation failed", logger.ErrorField(err))
	}
}

func validate(t *model.Track) error {
	var problems []string
	if strings.TrimSpace(t.Song) == "" {
		problems = append(problems, "song is required")
	}
	if strings.TrimSpace(t.Artist) == "" {
		problems = append(problems, "artist is required")
	}
	if t.Year < 0 {
		problems = append(problems, "year must not be negative")
	}
	if t.DurationSec < 0 {
		problems = append(problems, "duration_sec must not be negative")
	}
	if t.BPM < 0 {
		problems = append(problems, "bpm must not be negative")
	}
	if t.Energy < 0 || t.Energy > 100 {
		problems = append(problems, "energy must be between 0 and 100")
	}
	if t.Danceability < 0 || t.Danceability > 100 {
		problems = append(problems, "danceability must be between 0 and 100")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}
