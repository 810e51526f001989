package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musicapi/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// trackRecord is the GORM row for the tracks table.
type trackRecord struct {
	ID           string    `gorm:"primaryKey;type:char(36)"`
	Song         string    `gorm:"size:255;not null"`
	Artist       string    `gorm:"size:255;not null"`
	Year         int       `gorm:"not null;default:0"`
	Genre        string    `gorm:"size:255;not null;default:''"`
	Description  string    `gorm:"type:text"`
	DurationSec  int       `gorm:"column:duration_sec;not null;default:0"`
	BPM          int       `gorm:"column:bpm;not null;default:0"`
	Energy       int       `gorm:"index:idx_tracks_energy;not null;default:0"`
	Danceability int       `gorm:"index:idx_tracks_danceability;not null;default:0"`
	Version      int64     `gorm:"not null;default:1"`
	CreatedAt    time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt    time.Time `gorm:"type:datetime(3);not null"`
}

// TableName 指定表名
func (trackRecord) TableName() string {
	return "tracks"
}

func newTrackRecord(t *model.Track) *trackRecord {
	return &trackRecord{
		ID:           t.ID.String(),
		Song:         t.Song,
		Artist:       t.Artist,
		Year:         t.Year,
		Genre:        t.Genre,
		Description:  t.Description,
		DurationSec:  t.DurationSec,
		BPM:          t.BPM,
		Energy:       t.Energy,
		Danceability: t.Danceability,
		Version:      t.Version,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (rec *trackRecord) toModel() (*model.Track, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("stored track has invalid id %q: %w", rec.ID, err)
	}
	return &model.Track{
		ID:           id,
		Song:         rec.Song,
		Artist:       rec.Artist,
		Year:         rec.Year,
		Genre:        rec.Genre,
		Description:  rec.Description,
		DurationSec:  rec.DurationSec,
		BPM:          rec.BPM,
		Energy:       rec.Energy,
		Danceability: rec.Danceability,
		Version:      rec.Version,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// GormModels lists the rows AutoMigrate must know about.
func GormModels() []interface{} {
	return []interface{}{&trackRecord{}}
}

// gormTrackRepository GORM 实现
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a GORM backed TrackRepository.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

func (r *gormTrackRepository) Insert(ctx context.Context, track *model.Track) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := newTrackRecord(track)
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert track %s: %w", track.ID, classifyError(err))
	}
	track.Version = rec.Version
	track.CreatedAt = now
	track.UpdatedAt = now
	return nil
}

func (r *gormTrackRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Track, error) {
	var rec trackRecord
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find track %s: %w", id, err)
	}
	return rec.toModel()
}

func (r *gormTrackRepository) FindAll(ctx context.Context) ([]*model.Track, error) {
	return r.find(r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC"))
}

func (r *gormTrackRepository) TopByDanceability(ctx context.Context, limit int) ([]*model.Track, error) {
	return r.find(r.db.WithContext(ctx).Order("danceability DESC").Order("id ASC").Limit(limit))
}

func (r *gormTrackRepository) BottomByEnergy(ctx context.Context, limit int) ([]*model.Track, error) {
	return r.find(r.db.WithContext(ctx).Order("energy ASC").Order("id ASC").Limit(limit))
}

func (r *gormTrackRepository) find(q *gorm.DB) ([]*model.Track, error) {
	var recs []trackRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	tracks := make([]*model.Track, 0, len(recs))
	for i := range recs {
		t, err := recs[i].toModel()
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Save updates all mutable columns guarded by the loaded version.
func (r *gormTrackRepository) Save(ctx context.Context, track *model.Track) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res := r.db.WithContext(ctx).Model(&trackRecord{}).
		Where("id = ? AND version = ?", track.ID.String(), track.Version).
		Updates(map[string]interface{}{
			"song":         track.Song,
			"artist":       track.Artist,
			"year":         track.Year,
			"genre":        track.Genre,
			"description":  track.Description,
			"duration_sec": track.DurationSec,
			"bpm":          track.BPM,
			"energy":       track.Energy,
			"danceability": track.Danceability,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save track %s: %w", track.ID, classifyError(res.Error))
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&trackRecord{}).Where("id = ?", track.ID.String()).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check track %s: %w", track.ID, err)
		}
		if count == 0 {
			return ErrTrackNotFound
		}
		return ErrStaleTrack
	}

	track.Version++
	track.UpdatedAt = now
	return nil
}

func (r *gormTrackRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&trackRecord{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete track %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormTrackRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
