package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"rankwise.app/analyst/internal/model"
)

type flightFunc func(ctx context.Context) (*model.AnalysisResult, error)

type call struct {
	done    chan struct{}
	res     *model.AnalysisResult
	err     error
	waiters int
	cancel  context.CancelFunc
}

// flightGroup runs at most one analysis per key. Later callers join the
// in-flight run and receive its result. The run is detached from any
// single caller and is canceled only once every waiter has given up; an
// abandoned run leaves the group at once, so the next caller starts fresh.
// Exclusion is per process.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*call
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: map[string]*call{}}
}

// Do returns fn's result for key, and whether it was shared with a run
// another caller started.
func (g *flightGroup) Do(ctx context.Context, key string, fn flightFunc) (*model.AnalysisResult, error, bool) {
	g.mu.Lock()
	c, shared := g.calls[key]
	if shared {
		c.waiters++
		g.mu.Unlock()
	} else {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call{done: make(chan struct{}), waiters: 1, cancel: cancel}
		g.calls[key] = c
		g.mu.Unlock()

		go g.run(runCtx, key, c, fn)
	}

	select {
	case <-c.done:
		return c.res, c.err, shared
	case <-ctx.Done():
		g.mu.Lock()
		c.waiters--
		if c.waiters == 0 {
			if g.calls[key] == c {
				delete(g.calls, key)
			}
			c.cancel()
		}
		g.mu.Unlock()
		return nil, ctx.Err(), shared
	}
}

func (g *flightGroup) run(ctx context.Context, key string, c *call, fn flightFunc) {
	defer func() {
		if r := recover(); r != nil {
			c.res, c.err = nil, fmt.Errorf("analysis panicked: %v", r)
		}
		c.cancel()

		g.mu.Lock()
		if g.calls[key] == c {
			delete(g.calls, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()

	c.res, c.err = fn(ctx)
}
