// Package pipeline runs the producer, consumer and writer pools and the
// coordinator that shuts them down in order.
package pipeline

import (
	"context"
	"sync"
	"time"

	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/stats"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// workerPool is a fixed set of goroutines sharing one cancellable context.
// Each worker writes its own slot of results before it is marked done, so
// the slice is only read after the pool has joined.
type workerPool struct {
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}
	results []stats.WorkerResult
}

func newWorkerPool(ctx context.Context, name string, workers int) *workerPool {
	wctx, cancel := context.WithCancel(ctx)
	return &workerPool{
		name:    name,
		ctx:     wctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		results: make([]stats.WorkerResult, workers),
	}
}

func (p *workerPool) launch(id int, fn func(ctx context.Context) stats.WorkerResult) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.results[id] = fn(p.ctx)
	}()
}

// seal is called once every worker has been launched.
func (p *workerPool) seal() {
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
}

func (p *workerPool) Done() <-chan struct{} {
	return p.done
}

// shutdown waits for the workers to return on their own for at most grace
// (forever when grace <= 0). On timeout it cancels the pool context and joins;
// the returned error then wraps ErrShutdownTimeout.
func (p *workerPool) shutdown(grace time.Duration) ([]stats.WorkerResult, error) {
	var err error
	if grace <= 0 {
		<-p.done
	} else {
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-p.done:
		case <-timer.C:
			log.Warn().Str("pool", p.name).Dur("grace", grace).Msg("pool still running after grace period, cancelling")
			err = xerrors.Errorf("%s pool after %v: %w", p.name, grace, common_errors.ErrShutdownTimeout)
			p.cancel()
			<-p.done
		}
	}
	p.cancel()
	return p.results, err
}

// abort cancels the workers right away and joins them.
func (p *workerPool) abort() []stats.WorkerResult {
	p.cancel()
	<-p.done
	return p.results
}
