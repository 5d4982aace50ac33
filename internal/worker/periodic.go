package worker

import (
	"context"
	"sync"
	"time"
)

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTicker wraps a time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// ManualTicker ticks only when told to. Tick blocks until the tick has been
// received.
type ManualTicker struct {
	c    chan time.Time
	once sync.Once
	done chan struct{}
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{c: make(chan time.Time), done: make(chan struct{})}
}

func (m *ManualTicker) C() <-chan time.Time { return m.c }

func (m *ManualTicker) Stop() { m.once.Do(func() { close(m.done) }) }

// Tick delivers one tick. It returns false once the ticker is stopped.
func (m *ManualTicker) Tick() bool {
	select {
	case m.c <- time.Now():
		return true
	case <-m.done:
		return false
	}
}

// Periodic calls a function on every tick of a Ticker.
type Periodic struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartPeriodic runs fn on every tick until ctx is done or Stop is called.
// Calls never overlap.
func StartPeriodic(ctx context.Context, t Ticker, fn func(ctx context.Context)) *Periodic {
	ctx, cancel := context.WithCancel(ctx)
	p := &Periodic{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				fn(ctx)
			}
		}
	}()
	return p
}

// Stop ends the loop and waits for a running call to return.
func (p *Periodic) Stop() {
	p.cancel()
	<-p.done
}
