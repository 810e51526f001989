// Package repository holds the data-access layer for tracks.
//
// The default backend keeps raw SQL and explicit column mapping here so
// the service layer never sees SQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"musicapi/model"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

var (
	// ErrTrackNotFound is returned by Save when the row no longer exists.
	ErrTrackNotFound = errors.New("track not found")
	// ErrStaleTrack is returned by Save when the row was modified since it was loaded.
	ErrStaleTrack = errors.New("track was modified concurrently")
	// ErrConstraint wraps constraint violations reported by the store.
	ErrConstraint = errors.New("constraint violation")
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	// Insert stores a new track. The caller assigns the ID.
	Insert(ctx context.Context, track *model.Track) error
	// FindByID returns nil, nil when no track has the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Track, error)
	FindAll(ctx context.Context) ([]*model.Track, error)
	// Save overwrites the stored row if its version still matches track.Version.
	Save(ctx context.Context, track *model.Track) error
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	TopByDanceability(ctx context.Context, limit int) ([]*model.Track, error)
	BottomByEnergy(ctx context.Context, limit int) ([]*model.Track, error)
	Ping(ctx context.Context) error
}

const trackColumns = `id, song, artist, year, genre, description, duration_sec, bpm, energy, danceability, version, created_at, updated_at`

// mysqlTrackRepository implements TrackRepository with hand-written SQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner) (*model.Track, error) {
	track := &model.Track{}
	var description sql.NullString
	err := row.Scan(
		&track.ID,
		&track.Song,
		&track.Artist,
		&track.Year,
		&track.Genre,
		&description,
		&track.DurationSec,
		&track.BPM,
		&track.Energy,
		&track.Danceability,
		&track.Version,
		&track.CreatedAt,
		&track.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	track.Description = description.String
	return track, nil
}

// Insert adds a new track to the database.
func (r *mysqlTrackRepository) Insert(ctx context.Context, track *model.Track) error {
	query := `INSERT INTO tracks (` + trackColumns + `)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.DB.ExecContext(ctx, query,
		track.ID.String(),
		track.Song,
		track.Artist,
		track.Year,
		track.Genre,
		track.Description,
		track.DurationSec,
		track.BPM,
		track.Energy,
		track.Danceability,
		1,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert track %s: %w", track.ID, classifyError(err))
	}

	track.Version = 1
	track.CreatedAt = now
	track.UpdatedAt = now
	return nil
}

// FindByID retrieves a track by its ID.
func (r *mysqlTrackRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`

	track, err := scanTrack(r.DB.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// FindAll retrieves all tracks in insertion order.
func (r *mysqlTrackRepository) FindAll(ctx context.Context) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY created_at ASC, id ASC`
	return r.queryTracks(ctx, "FindAll", query)
}

// TopByDanceability returns the most danceable tracks first. Ties are broken by id.
func (r *mysqlTrackRepository) TopByDanceability(ctx context.Context, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY danceability DESC, id ASC LIMIT ?`
	return r.queryTracks(ctx, "TopByDanceability", query, limit)
}

// BottomByEnergy returns the calmest tracks first. Ties are broken by id.
func (r *mysqlTrackRepository) BottomByEnergy(ctx context.Context, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY energy ASC, id ASC LIMIT ?`
	return r.queryTracks(ctx, "BottomByEnergy", query, limit)
}

func (r *mysqlTrackRepository) queryTracks(ctx context.Context, op, query string, args ...interface{}) ([]*model.Track, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks in %s: %w", op, err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in %s: %w", op, err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in %s: %w", op, err)
	}
	return tracks, nil
}

// Save overwrites every mutable column and bumps the version.
func (r *mysqlTrackRepository) Save(ctx context.Context, track *model.Track) error {
	query := `UPDATE tracks
	           SET song = ?, artist = ?, year = ?, genre = ?, description = ?, duration_sec = ?, bpm = ?,
	               energy = ?, danceability = ?, version = version + 1, updated_at = ?
	           WHERE id = ? AND version = ?`

	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.DB.ExecContext(ctx, query,
		track.Song,
		track.Artist,
		track.Year,
		track.Genre,
		track.Description,
		track.DurationSec,
		track.BPM,
		track.Energy,
		track.Danceability,
		now,
		track.ID.String(),
		track.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to execute Save for track %s: %w", track.ID, classifyError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for track %s: %w", track.ID, err)
	}
	if affected == 0 {
		return r.missOrStale(ctx, track.ID)
	}

	track.Version++
	track.UpdatedAt = now
	return nil
}

// missOrStale tells a vanished row from a version mismatch after an update matched nothing.
func (r *mysqlTrackRepository) missOrStale(ctx context.Context, id uuid.UUID) error {
	var version int64
	err := r.DB.QueryRowContext(ctx, `SELECT version FROM tracks WHERE id = ?`, id.String()).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTrackNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check version of track %s: %w", id, err)
	}
	return ErrStaleTrack
}

// DeleteByID removes a track and reports whether it existed.
func (r *mysqlTrackRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("failed to execute DeleteByID for track %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for track %s: %w", id, err)
	}
	return affected > 0, nil
}

func (r *mysqlTrackRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// MySQL server error numbers that indicate bad input rather than a broken store.
var constraintErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1264: true, // out of range value
	1364: true, // field doesn't have a default value
	1366: true, // incorrect value for column
	1406: true, // data too long
}

// classifyError marks constraint violations with ErrConstraint and keeps the driver error.
func classifyError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && constraintErrors[me.Number] {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}
