package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal/contract"
	perrors "github.com/scythe504/partybox-server/internal/errors"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

// Supervisor runs each worker in its own goroutine, restarts it after a
// panic or an error, and returns once every worker stopped.
type Supervisor struct {
	cancel  context.CancelFunc
	mu      sync.Mutex
	wg      sync.WaitGroup
	workers []contract.Worker
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

func (s *Supervisor) Add(workers ...contract.Worker) *Supervisor {
	s.workers = append(s.workers, workers...)
	return s
}

// Run blocks until ctx is cancelled or Stop is called and all workers
// returned.
func (s *Supervisor) Run(ctx context.Context) {
	supervised, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.start(supervised, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.WorkerName(worker)

	go func() {
		defer s.wg.Done()
		log.Info().Str("worker", name).Msg("[Supervisor] worker started")

		for {
			if ctx.Err() != nil {
				log.Info().Str("worker", name).Msg("[Supervisor] worker stopping")
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						log.Error().Str("worker", name).Interface("panic", r).Msg("[Supervisor] worker panicked")
						err = perrors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				log.Info().Str("worker", name).Msg("[Supervisor] worker finished")
				return
			}
			if ctx.Err() != nil {
				log.Info().Str("worker", name).Msg("[Supervisor] worker stopped")
				return
			}

			log.Warn().Err(err).Str("worker", name).Msg("[Supervisor] worker crashed, restarting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(waitTimeBeforeRestart):
			}
		}
	}()
}

func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
