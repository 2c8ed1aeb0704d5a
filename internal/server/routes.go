package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/process"
	"github.com/skip2/go-qrcode"

	"github.com/scythe504/partybox-server/internal"
	perrors "github.com/scythe504/partybox-server/internal/errors"
	"github.com/scythe504/partybox-server/internal/utils"
)

const qrSize = 256

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.ws.HandleWebSocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", s.GamesHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms", s.RoomsHandler).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.StatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/matches", s.MatchesHandler).Methods(http.MethodGet)

	r.HandleFunc("/rooms/{code}/qr.png", s.RoomQRHandler).Methods(http.MethodGet)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeResponse wraps data in the timed API envelope.
func writeResponse(w http.ResponseWriter, start time.Time, status int, data any) {
	end := time.Now()
	resp := internal.Response{
		StatusCode:    status,
		RespStartTime: start.UnixMilli(),
		RespEndTime:   end.UnixMilli(),
		NetRespTime:   end.Sub(start).Milliseconds(),
		Data:          data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("[writeResponse] encode failed")
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	health := map[string]any{"status": "OK"}
	if s.archive != nil {
		health["archive"] = s.archive.Health(r.Context())
	}
	writeResponse(w, start, http.StatusOK, health)
}

func (s *Server) GamesHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, time.Now(), http.StatusOK, s.manager.Registry().List())
}

// RoomsHandler lists live rooms. Codes are only shown to operators so the
// listing cannot be used to walk into rooms.
func (s *Server) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rooms := s.manager.Rooms()
	if rooms == nil {
		rooms = []internal.RoomSummary{}
	}
	if !s.isOperator(r) {
		for i := range rooms {
			rooms[i].Code = ""
		}
	}
	writeResponse(w, start, http.StatusOK, rooms)
}

func (s *Server) isOperator(r *http.Request) bool {
	if s.cfg.AdminToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) == 1
}

type Stats struct {
	Rooms         int     `json:"rooms"`
	Connections   int     `json:"connections"`
	Goroutines    int     `json:"goroutines"`
	RSSBytes      uint64  `json:"rssBytes"`
	CPUPercent    float64 `json:"cpuPercent"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
}

func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats := Stats{
		Rooms:         s.manager.Count(),
		Connections:   s.hub.Count(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			stats.RSSBytes = mem.RSS
		}
		if cpu, err := p.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	} else {
		log.Warn().Err(err).Msg("[StatsHandler] process stats unavailable")
	}
	writeResponse(w, start, http.StatusOK, stats)
}

func (s *Server) MatchesHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.archive == nil {
		writeResponse(w, start, http.StatusServiceUnavailable, perrors.ErrArchiveDisabled.Error())
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	matches, err := s.archive.RecentMatches(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("[MatchesHandler] query failed")
		writeResponse(w, start, http.StatusInternalServerError, "Unable to load matches")
		return
	}
	writeResponse(w, start, http.StatusOK, matches)
}

// RoomQRHandler renders the join link of a live room for the shared
// screen. Hidden codes are not served.
func (s *Server) RoomQRHandler(w http.ResponseWriter, r *http.Request) {
	code := utils.NormalizeCode(mux.Vars(r)["code"])
	if !utils.ValidCode(code) || !s.manager.Exists(code) {
		http.NotFound(w, r)
		return
	}
	png, err := qrcode.Encode(s.cfg.JoinURL(code), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("[RoomQRHandler] encode failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
