// Package database archives finished matches in Postgres.
package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	perrors "github.com/scythe504/partybox-server/internal/errors"
)

// Service is the match archive. It never holds live room state.
type Service struct {
	pool *pgxpool.Pool
}

// New connects, checks the connection and migrates the schema.
func New(ctx context.Context, connString string) (*Service, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Int32("maxConns", pool.Config().MaxConns).Msg("[Database] connected")
	return &Service{pool: pool}, nil
}

// Health reports pool statistics in the shape served by /health.
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("[Database] health check failed")
		return stats
	}

	pool := s.pool.Stat()
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["total_connections"] = strconv.Itoa(int(pool.TotalConns()))
	stats["idle_connections"] = strconv.Itoa(int(pool.IdleConns()))
	stats["in_use"] = strconv.Itoa(int(pool.AcquiredConns()))
	stats["acquire_count"] = strconv.FormatInt(pool.AcquireCount(), 10)
	stats["wait_duration"] = pool.AcquireDuration().String()
	if pool.AcquiredConns() >= pool.MaxConns() {
		stats["message"] = "The pool is saturated."
	}
	return stats
}

// SaveMatch stores one result and its standings in a single transaction.
// Saving the same match twice is a no-op.
func (s *Service) SaveMatch(ctx context.Context, result internal.MatchResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO matches (id, room_code, game_key, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		result.ID, result.RoomCode, result.GameKey, result.StartedAt, result.FinishedAt)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	rows := make([][]any, 0, len(result.Players))
	for _, p := range result.Players {
		rows = append(rows, []any{result.ID, p.PlayerID, p.Name, p.Score, p.Position})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"match_players"},
		[]string{"match_id", "player_id", "name", "score", "position"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return wrap(err)
	}
	return wrap(tx.Commit(ctx))
}

// RecentMatches returns the latest finished matches, newest first, with
// players ordered by position.
func (s *Service) RecentMatches(ctx context.Context, limit int) ([]internal.MatchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_code, game_key, started_at, finished_at
		 FROM matches ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrap(err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (internal.MatchResult, error) {
		var m internal.MatchResult
		err := row.Scan(&m.ID, &m.RoomCode, &m.GameKey, &m.StartedAt, &m.FinishedAt)
		return m, err
	})
	if err != nil {
		return nil, wrap(err)
	}
	if len(matches) == 0 {
		return matches, nil
	}

	ids := make([]string, len(matches))
	index := make(map[string]int, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		index[m.ID] = i
		matches[i].Players = []internal.MatchPlayer{}
	}
	prows, err := s.pool.Query(ctx,
		`SELECT match_id, player_id, name, score, position
		 FROM match_players WHERE match_id = ANY($1)
		 ORDER BY position, name`, ids)
	if err != nil {
		return nil, wrap(err)
	}
	defer prows.Close()
	for prows.Next() {
		var matchID string
		var p internal.MatchPlayer
		if err := prows.Scan(&matchID, &p.PlayerID, &p.Name, &p.Score, &p.Position); err != nil {
			return nil, wrap(err)
		}
		i := index[matchID]
		matches[i].Players = append(matches[i].Players, p)
	}
	return matches, wrap(prows.Err())
}

func (s *Service) Close() {
	log.Info().Msg("[Database] disconnected")
	s.pool.Close()
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", perrors.ErrUnexpectedDatabase, err)
}
