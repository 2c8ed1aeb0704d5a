package workers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/scythe504/partybox-server/internal/ratelimit"
)

// Periodic calls task on every tick of its clock until the context ends.
type Periodic struct {
	name  string
	clock clockwork.Clock
	every time.Duration
	task  func(now time.Time)
}

func NewPeriodic(name string, clock clockwork.Clock, every time.Duration, task func(now time.Time)) *Periodic {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Periodic{name: name, clock: clock, every: every, task: task}
}

func (p *Periodic) Name() string { return p.name }

func (p *Periodic) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.Chan():
			p.task(now)
		}
	}
}

// Reaper is what the idle sweep needs from the room manager.
type Reaper interface {
	ReapIdle(now time.Time) int
}

// NewIdleReaper ends abandoned rooms every interval.
func NewIdleReaper(rooms Reaper, clock clockwork.Clock, every time.Duration) *Periodic {
	return NewPeriodic("IdleReaper", clock, every, func(now time.Time) {
		if n := rooms.ReapIdle(now); n > 0 {
			log.Debug().Int("reaped", n).Msg("[IdleReaper] sweep done")
		}
	})
}

// NewLimiterJanitor drops expired rate limit windows every interval.
func NewLimiterJanitor(limiter *ratelimit.Limiter, clock clockwork.Clock, every time.Duration) *Periodic {
	return NewPeriodic("LimiterJanitor", clock, every, func(time.Time) {
		if n := limiter.Sweep(); n > 0 {
			log.Debug().Int("evicted", n).Int("remaining", limiter.Len()).Msg("[LimiterJanitor] windows evicted")
		}
	})
}
