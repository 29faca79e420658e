package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// loop drives a tick function on a fixed interval until the context ends
// or Stop is called.
type loop struct {
	name     string
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newLoop(name string, interval time.Duration) *loop {
	return &loop{name: name, interval: interval, stopCh: make(chan struct{})}
}

func (l *loop) setInterval(interval time.Duration) {
	if interval > 0 {
		l.interval = interval
	}
}

// start blocks. When immediate is set tick runs once before the first wait.
func (l *loop) start(ctx context.Context, immediate bool, tick func(context.Context)) {
	zap.L().Info(l.name+" worker starting", zap.Duration("interval", l.interval))
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	if immediate {
		tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			zap.L().Info(l.name + " worker context canceled")
			return
		case <-l.stopCh:
			zap.L().Info(l.name + " worker stop signal received")
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (l *loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}
