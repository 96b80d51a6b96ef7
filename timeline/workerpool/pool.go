// Package workerpool runs a bounded set of jobs against a fixed pool of
// goroutines and collects the results. It is used by the segment observer
// to hydrate several timeline items concurrently without spawning an
// unbounded number of goroutines per refetch.
package workerpool

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// JobFunc does one unit of work against payload and returns a result.
// A nil, nil return means "no result, no error" (common for jobs that
// mutate state out of band rather than returning a value).
type JobFunc func(payload interface{}) (interface{}, error)

type job struct {
	payload interface{}
	fn      JobFunc

	wg      *sync.WaitGroup
	results chan interface{}
	stopped *atomic.Bool
	err     *atomic.Error
}

// Config controls pool sizing.
type Config struct {
	MaxWorkers int
	QueueDepth int
}

func defaultConfig() *Config {
	return &Config{
		MaxWorkers: 16,
		QueueDepth: 1000,
	}
}

// Pool is a fixed-size worker pool fed by a buffered job queue.
type Pool struct {
	cfg    *Config
	size   *atomic.Int32
	closed *atomic.Bool

	workQueue chan *job
}

// New starts cfg.MaxWorkers goroutines draining a queue of depth cfg.QueueDepth.
func New(cfg *Config) *Pool {
	if cfg == nil {
		cfg = defaultConfig()
	}

	q := make(chan *job, cfg.QueueDepth)
	p := &Pool{
		cfg:       cfg,
		workQueue: q,
		size:      atomic.NewInt32(0),
		closed:    atomic.NewBool(false),
	}

	for i := 0; i < cfg.MaxWorkers; i++ {
		go p.worker(q)
	}

	return p
}

// RunAll runs fn against every payload and collects every non-nil result in
// the order jobs complete (not input order). If any job fails, it returns
// one of the job errors; when several jobs fail, which one is returned is
// not defined. A failing job does not stop the others.
func (p *Pool) RunAll(payloads []interface{}, fn JobFunc) ([]interface{}, error) {
	totalJobs := len(payloads)
	if totalJobs == 0 {
		return nil, nil
	}

	if p.closed.Load() {
		return nil, fmt.Errorf("workerpool: pool is shut down")
	}

	if int(p.size.Load())+totalJobs > p.cfg.QueueDepth {
		return nil, fmt.Errorf("workerpool: queue doesn't have room for %d jobs", totalJobs)
	}

	results := make(chan interface{}, totalJobs)
	wg := &sync.WaitGroup{}
	stopped := atomic.NewBool(false)
	jobErr := atomic.NewError(nil)

	wg.Add(totalJobs)
	for _, payload := range payloads {
		j := &job{
			fn:      fn,
			payload: payload,
			wg:      wg,
			results: results,
			stopped: stopped,
			err:     jobErr,
		}

		select {
		case p.workQueue <- j:
			p.size.Inc()
		default:
			stopped.Store(true)
			return nil, fmt.Errorf("workerpool: failed to enqueue job, queue full")
		}
	}

	wg.Wait()
	close(results)

	out := make([]interface{}, 0, totalJobs)
	for r := range results {
		if r != nil {
			out = append(out, r)
		}
	}

	return out, jobErr.Load()
}

// Shutdown stops accepting new jobs and terminates worker goroutines once
// the queue drains.
func (p *Pool) Shutdown() {
	if p.closed.CAS(false, true) {
		close(p.workQueue)
	}
}

func (p *Pool) worker(jobs <-chan *job) {
	for j := range jobs {
		p.size.Dec()

		if j.stopped.Load() {
			j.wg.Done()
			continue
		}

		result, err := j.fn(j.payload)
		if err != nil {
			j.err.Store(err)
		}
		if result != nil {
			j.results <- result
		}
		j.wg.Done()
	}
}
