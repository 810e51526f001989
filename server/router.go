package server

import (
	"net/http"
	"time"

	"musicapi/logger"

	"github.com/gorilla/mux"
)

// NewRouter 使用 gorilla/mux 注册 /tracks 路由
// CORS 包在整个路由器外层, 预检请求不会进入 mux
func NewRouter(h *APIHandler) http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	// 报表路由必须在 /tracks/{id} 之前注册
	router.HandleFunc("/tracks/high-danceability", h.HighDanceabilityHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks/low-energy", h.LowEnergyHandler).Methods(http.MethodGet)

	router.HandleFunc("/tracks", h.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks", h.CreateTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/tracks/{id}", h.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks/{id}", h.UpdateTrackHandler).Methods(http.MethodPut)
	router.HandleFunc("/tracks/{id}", h.DeleteTrackHandler).Methods(http.MethodDelete)

	return corsMiddleware(router)
}

// 添加 CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Location")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// 请求日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)),
		)
	})
}
