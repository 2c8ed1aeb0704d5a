package game

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// phaseTimer is the single pending deadline of a room.
type phaseTimer struct {
	ctx      context.Context
	cancel   context.CancelFunc
	deadline time.Time
	timer    clockwork.Timer
}

// Schedule arms the room deadline. Any existing timer is cancelled first so
// a room never has two pending deadlines. A non-positive duration only
// cancels.
func (s *session) Schedule(d time.Duration, onExpire func()) {
	s.CancelDeadline()
	if d <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	pt := &phaseTimer{
		ctx:      ctx,
		cancel:   cancel,
		deadline: s.now().Add(d),
	}
	pt.timer = s.m.opts.Clock.AfterFunc(d, func() {
		if ctx.Err() != nil {
			return
		}
		s.post(func() { s.expire(ctx, onExpire) })
	})
	s.timer = pt

	log.Debug().Str("room", s.room.Code).Dur("duration", d).Msg("[StartPhaseTimer] timer armed")
}

// expire runs on the room loop. A timer that was cancelled or replaced
// after it fired is ignored.
func (s *session) expire(ctx context.Context, onExpire func()) {
	active := s.timer != nil && s.timer.ctx == ctx && ctx.Err() == nil
	if !active {
		log.Debug().Str("room", s.room.Code).Msg("[StartPhaseTimer] stale timer ignored")
		return
	}
	s.timer.cancel()
	s.timer = nil

	onExpire()
	s.afterRules()
	s.broadcastState()
}

// CancelDeadline stops the pending timer, if any.
func (s *session) CancelDeadline() {
	if s.timer == nil {
		return
	}
	s.timer.timer.Stop()
	s.timer.cancel()
	s.timer = nil
	log.Debug().Str("room", s.room.Code).Msg("[CancelPhaseTimer] timer cancelled")
}

func (s *session) Deadline() (time.Time, bool) {
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.timer.deadline, true
}
