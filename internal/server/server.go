package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/game"
	"github.com/scythe504/partybox-server/internal/websocket"
)

// Archive is the read side of the match archive used by the HTTP API.
type Archive interface {
	Health(ctx context.Context) map[string]string
	RecentMatches(ctx context.Context, limit int) ([]internal.MatchResult, error)
}

type Server struct {
	cfg     internal.Config
	manager *game.Manager
	hub     *websocket.Hub
	ws      *websocket.Handler
	archive Archive
	started time.Time
}

// New builds the route handler. archive may be nil when no database is
// configured.
func New(cfg internal.Config, manager *game.Manager, hub *websocket.Hub, archive Archive) *Server {
	return &Server{
		cfg:     cfg,
		manager: manager,
		hub:     hub,
		ws:      websocket.NewHandler(hub, manager),
		archive: archive,
		started: time.Now(),
	}
}

func NewServer(cfg internal.Config, manager *game.Manager, hub *websocket.Hub, archive Archive) *http.Server {
	s := New(cfg, manager, hub, archive)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
