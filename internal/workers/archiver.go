package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/contract"
)

// Archiver buffers finished matches and saves them one by one. It is the
// room manager's MatchRecorder.
type Archiver struct {
	store   contract.MatchStore
	queue   chan internal.MatchResult
	timeout time.Duration
}

func NewArchiver(store contract.MatchStore, size int, timeout time.Duration) *Archiver {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Archiver{
		store:   store,
		queue:   make(chan internal.MatchResult, size),
		timeout: timeout,
	}
}

// Record queues result without blocking. It reports false when the queue
// is full.
func (a *Archiver) Record(result internal.MatchResult) bool {
	select {
	case a.queue <- result:
		return true
	default:
		return false
	}
}

func (a *Archiver) Pending() int { return len(a.queue) }

// Run saves queued matches until ctx ends, then flushes what is left.
func (a *Archiver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return nil
		case result := <-a.queue:
			a.save(ctx, result)
		}
	}
}

func (a *Archiver) flush() {
	for {
		select {
		case result := <-a.queue:
			a.save(context.Background(), result)
		default:
			return
		}
	}
}

func (a *Archiver) save(parent context.Context, result internal.MatchResult) {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()
	if err := a.store.SaveMatch(ctx, result); err != nil {
		log.Error().Err(err).Str("match", result.ID).Str("room", result.RoomCode).Msg("[Archiver] save failed")
		return
	}
	log.Info().Str("match", result.ID).Str("room", result.RoomCode).Str("game", result.GameKey).Msg("[Archiver] match saved")
}

var _ contract.MatchRecorder = (*Archiver)(nil)
