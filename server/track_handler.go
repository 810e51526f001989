package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"musicapi/core/track"
	"musicapi/logger"
	"musicapi/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20 // 1MiB

// TrackService handler 依赖的 track.Service 方法
type TrackService interface {
	GetAll(ctx context.Context) ([]*model.Track, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Track, error)
	Create(ctx context.Context, input *model.Track) (*model.Track, error)
	Update(ctx context.Context, id uuid.UUID, patch *model.Track) (*model.Track, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetTopDanceability(ctx context.Context) ([]*model.Track, error)
	GetLowEnergy(ctx context.Context) ([]*model.Track, error)
	Ping(ctx context.Context) error
}

// APIHandler 处理所有 /tracks 请求
type APIHandler struct {
	tracks TrackService
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(tracks TrackService) *APIHandler {
	return &APIHandler{tracks: tracks}
}

// GetTracksHandler 返回全部歌曲
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.tracks.GetAll(r.Context())
	if err != nil {
		logger.Error("Failed to list tracks", logger.ErrorField(err))
		http.Error(w, "Failed to list tracks", http.StatusInternalServerError)
		return
	}

	logger.Debug("Listed tracks", logger.Int("count", len(tracks)))
	writeJSON(w, http.StatusOK, nonNil(tracks))
}

// GetTrackHandler 按ID获取歌曲
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTrackID(w, r)
	if !ok {
		return
	}

	t, err := h.tracks.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err, id, "get")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTrackHandler 新建歌曲
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeTrack(w, r)
	if !ok {
		return
	}

	created, err := h.tracks.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, err, uuid.Nil, "create")
		return
	}

	w.Header().Set("Location", "/tracks/"+created.ID.String())
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTrackHandler 整体替换歌曲字段
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTrackID(w, r)
	if !ok {
		return
	}
	patch, ok := decodeTrack(w, r)
	if !ok {
		return
	}

	updated, err := h.tracks.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err, id, "update")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTrackHandler 删除歌曲
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTrackID(w, r)
	if !ok {
		return
	}

	if err := h.tracks.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, id, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HighDanceabilityHandler 返回最适合跳舞的歌曲
func (h *APIHandler) HighDanceabilityHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.tracks.GetTopDanceability(r.Context())
	if err != nil {
		logger.Error("Failed to build danceability report", logger.ErrorField(err))
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tracks))
}

// LowEnergyHandler 返回能量最低的歌曲
func (h *APIHandler) LowEnergyHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.tracks.GetLowEnergy(r.Context())
	if err != nil {
		logger.Error("Failed to build energy report", logger.ErrorField(err))
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tracks))
}

// HealthHandler 健康检查, 存储不可用时返回 503
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.tracks.Ping(r.Context()); err != nil {
		logger.Warn("Health check failed", logger.ErrorField(err))
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error, id uuid.UUID, op string) {
	switch {
	case errors.Is(err, track.ErrNotFound):
		logger.Warn("Track not found", logger.String("op", op), logger.Stringer("trackId", id))
		http.Error(w, "Track not found", http.StatusNotFound)
	case errors.Is(err, track.ErrInvalidArgument):
		logger.Warn("Invalid track", logger.String("op", op), logger.ErrorField(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, track.ErrConflict):
		logger.Warn("Track update conflict", logger.Stringer("trackId", id))
		http.Error(w, "Track was modified concurrently, retry", http.StatusConflict)
	default:
		logger.Error("Track operation failed",
			logger.String("op", op),
			logger.Stringer("trackId", id),
			logger.ErrorField(err),
		)
		http.Error(w, "Failed to "+op+" track", http.StatusInternalServerError)
	}
}

func parseTrackID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid track ID", logger.String("id", raw), logger.ErrorField(err))
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func decodeTrack(w http.ResponseWriter, r *http.Request) (*model.Track, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var t model.Track
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&t); err != nil {
		logger.Warn("Failed to decode track", logger.ErrorField(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}

	// 请求体只能包含一个 JSON 对象
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		logger.Warn("Trailing data after track body", logger.ErrorField(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &t, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

func nonNil(tracks []*model.Track) []*model.Track {
	if tracks == nil {
		return []*model.Track{}
	}
	return tracks
}
