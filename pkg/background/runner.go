// Package background runs fire-and-forget work after a request commits.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/blissmart/marketplace-backend/pkg/logger"
)

var ErrSaturated = errors.New("background runner saturated")

// Task is one unit of deferred work. The context carries request values but
// not the request's cancellation.
type Task func(ctx context.Context) error

// Submitter accepts deferred tasks.
type Submitter interface {
	Go(ctx context.Context, name string, task Task) error
}

// Runner bounds concurrent tasks and gives each a timeout.
type Runner struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logg    *logger.Logger
	wg      sync.WaitGroup
}

func NewRunner(maxConcurrent int, timeout time.Duration, logg *logger.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Runner{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: timeout,
		logg:    logg,
	}
}

// Go starts task in its own goroutine. It returns ErrSaturated without
// running the task when every slot is busy.
func (r *Runner) Go(ctx context.Context, name string, task Task) error {
	if task == nil {
		return nil
	}
	if !r.sem.TryAcquire(1) {
		if r.logg != nil {
			r.logg.Warn(r.logg.WithField(ctx, "task", name), "background task dropped")
		}
		return ErrSaturated
	}

	r.wg.Add(1)
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil && r.logg != nil {
				r.logg.Error(r.logg.WithField(taskCtx, "task", name), "background task panicked", fmt.Errorf("panic: %v", rec))
			}
		}()

		if err := task(taskCtx); err != nil && r.logg != nil {
			r.logg.Error(r.logg.WithField(taskCtx, "task", name), "background task failed", err)
		}
	}()
	return nil
}

// Wait blocks until every running task returns or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inline runs tasks synchronously. Used by tests and tools that must observe
// side effects before returning.
type Inline struct{}

func (Inline) Go(ctx context.Context, _ string, task Task) error {
	if task == nil {
		return nil
	}
	return task(ctx)
}
