package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"musicapi/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

var columnNames = []string{"id", "song", "artist", "year", "genre", "description", "duration_sec", "bpm", "energy", "danceability", "version", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (TrackRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		conn.Close()
	})
	return NewMySQLTrackRepository(conn), mock
}

func addTrackRow(rows *sqlmock.Rows, id uuid.UUID, song string, energy, danceability int) *sqlmock.Rows {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id.String(), song, "Artist", 2001, "Pop", nil, 200, 120, energy, danceability, int64(1), now, now)
}

func TestMySQLInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	track := &model.Track{ID: uuid.New(), Song: "Sweet Dreams", Artist: "Beyoncé", Year: 2008, Energy: 85, Danceability: 90}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tracks (" + trackColumns + ")")).
		WithArgs(track.ID.String(), "Sweet Dreams", "Beyoncé", 2008, "", "", 0, 0, 85, 90, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), track); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if track.Version != 1 {
		t.Errorf("Version = %d, want 1", track.Version)
	}
	if track.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMySQLInsertConstraintViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tracks")).
		WillReturnError(&mysql.MySQLError{Number: 1048, Message: "Column 'song' cannot be null"})

	err := repo.Insert(context.Background(), &model.Track{ID: uuid.New()})
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("Insert() error = %v, want ErrConstraint", err)
	}
}

func TestMySQLInsertOtherErrorIsNotConstraint(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tracks")).WillReturnError(sql.ErrConnDone)

	err := repo.Insert(context.Background(), &model.Track{ID: uuid.New(), Song: "x", Artist: "y"})
	if err == nil || errors.Is(err, ErrConstraint) {
		t.Errorf("Insert() error = %v, want a non-constraint error", err)
	}
}

func TestMySQLFindByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + trackColumns + " FROM tracks WHERE id = ?")).
		WithArgs(id.String()).
		WillReturnRows(addTrackRow(sqlmock.NewRows(columnNames), id, "Nothing New", 60, 70))

	got, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got == nil || got.ID != id || got.Song != "Nothing New" || got.Danceability != 70 {
		t.Fatalf("FindByID() = %+v", got)
	}
	if got.Description != "" {
		t.Errorf("Description = %q, want empty for NULL", got.Description)
	}
}

func TestMySQLFindByIDMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tracks WHERE id = ?")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(columnNames))

	got, err := repo.FindByID(context.Background(), id)
	if err != nil || got != nil {
		t.Errorf("FindByID() = %v, %v; want nil, nil", got, err)
	}
}

func TestMySQLRankingQueries(t *testing.T) {
	tests := []struct {
		name  string
		query string
		call  func(TrackRepository) ([]*model.Track, error)
	}{
		{
			name:  "top danceability",
			query: "ORDER BY danceability DESC, id ASC LIMIT ?",
			call: func(r TrackRepository) ([]*model.Track, error) {
				return r.TopByDanceability(context.Background(), 15)
			},
		},
		{
			name:  "bottom energy",
			query: "ORDER BY energy ASC, id ASC LIMIT ?",
			call: func(r TrackRepository) ([]*model.Track, error) {
				return r.BottomByEnergy(context.Background(), 15)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			rows := sqlmock.NewRows(columnNames)
			addTrackRow(rows, uuid.New(), "A", 10, 90)
			addTrackRow(rows, uuid.New(), "C", 20, 50)
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WithArgs(15).WillReturnRows(rows)

			got, err := tt.call(repo)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(got) != 2 || got[0].Song != "A" || got[1].Song != "C" {
				t.Errorf("got %d tracks, want A then C", len(got))
			}
		})
	}
}

func TestMySQLFindAllEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).WillReturnRows(sqlmock.NewRows(columnNames))

	got, err := repo.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("FindAll() = %v, want empty non-nil slice", got)
	}
}

func TestMySQLSave(t *testing.T) {
	repo, mock := newMockRepo(t)
	track := &model.Track{ID: uuid.New(), Song: "Coconut", Artist: "Manu Dibango", Version: 3}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tracks")).
		WithArgs("Coconut", "Manu Dibango", 0, "", "", 0, 0, 0, 0, sqlmock.AnyArg(), track.ID.String(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), track); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if track.Version != 4 {
		t.Errorf("Version = %d, want 4", track.Version)
	}
}

func TestMySQLSaveMissOrStale(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{"stale version", sqlmock.NewRows([]string{"version"}).AddRow(int64(5)), ErrStaleTrack},
		{"row deleted", sqlmock.NewRows([]string{"version"}), ErrTrackNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			track := &model.Track{ID: uuid.New(), Song: "s", Artist: "a", Version: 4}

			mock.ExpectExec(regexp.QuoteMeta("UPDATE tracks")).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM tracks WHERE id = ?")).
				WithArgs(track.ID.String()).
				WillReturnRows(tt.rows)

			err := repo.Save(context.Background(), track)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
			if track.Version != 4 {
				t.Errorf("Version = %d, want unchanged 4", track.Version)
			}
		})
	}
}

func TestMySQLDeleteByID(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"existing", 1, true},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			id := uuid.New()
			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tracks WHERE id = ?")).
				WithArgs(id.String()).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.DeleteByID(context.Background(), id)
			if err != nil {
				t.Fatalf("DeleteByID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DeleteByID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"data too long", &mysql.MySQLError{Number: 1406}, true},
		{"duplicate", &mysql.MySQLError{Number: 1062}, true},
		{"deadlock", &mysql.MySQLError{Number: 1213}, false},
		{"plain", errors.New("network down"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if isConstraint := errors.Is(got, ErrConstraint); isConstraint != tt.want {
				t.Errorf("classifyError(%v) constraint = %v, want %v", tt.err, isConstraint, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classifyError(%v) lost the original error", tt.err)
			}
		})
	}
}
