package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/slighter12/twinscene-go/logger"
)

// Run is the editor loop. It executes submitted work and the render tick on
// the calling goroutine until ctx is done.
func (e *Editor) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()
	defer close(e.done)

	last := time.Now()
	logger.Info("editor loop started", "tick", e.opts.TickInterval)
	for {
		select {
		case <-ctx.Done():
			e.animations.Dispose()
			logger.Info("editor loop stopped")
			return ctx.Err()
		case task := <-e.tasks:
			task()
		case now := <-ticker.C:
			e.Tick(now.Sub(last))
			last = now
		}
	}
}

// Do runs fn on the editor loop and waits for it to return.
func (e *Editor) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("editor task panicked", "error", fmt.Sprint(r))
				result <- fmt.Errorf("editor task panicked: %v", r)
			}
		}()
		result <- fn()
	}

	select {
	case e.tasks <- task:
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. It gives up when the loop stops or stop
// is closed.
func (e *Editor) post(fn func(), stop <-chan struct{}) {
	select {
	case e.tasks <- fn:
	case <-e.done:
	case <-stop:
	}
}

// loopScheduler runs timer callbacks on the editor loop.
type loopScheduler struct {
	e *Editor
}

func (s loopScheduler) Every(interval time.Duration, fn func()) (cancel func()) {
	stop := make(chan struct{})
	cancelled := false
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-s.e.done:
				return
			case <-ticker.C:
				s.e.post(func() {
					if !cancelled {
						fn()
					}
				}, stop)
			}
		}
	}()
	return func() {
		if cancelled {
			return
		}
		cancelled = true
		close(stop)
	}
}
