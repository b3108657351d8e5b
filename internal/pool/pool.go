// Package pool runs segment sieving on a fixed set of long-lived goroutines.
//
// Each worker receives the base prime list once, when the pool is created,
// and keeps its own sieve.Worker for the lifetime of the pool. Chunks are
// handed out round-robin on per-worker queues, so with as many chunks as
// workers every worker sieves exactly one chunk.
package pool

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"segsieve/internal/sieve"
)

var ErrClosed = errors.New("pool is closed")

// Result describes one sieved chunk. Bitmap is only set when the pool was
// created WithRetain.
type Result struct {
	Index   int
	Worker  int
	Chunk   sieve.Chunk
	Tally   sieve.Tally
	Bitmap  sieve.Bitmap
	Elapsed time.Duration
}

type task struct {
	index int
	chunk sieve.Chunk
	reply chan<- Result
}

type Option func(*Pool)

func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pool) {
		p.log = log
	}
}

// WithRetain keeps each chunk's bitmap in its Result instead of dropping it
// once tallied.
func WithRetain() Option {
	return func(p *Pool) {
		p.retain = true
	}
}

type Pool struct {
	log    logrus.FieldLogger
	retain bool
	queues []chan task
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts size workers, each holding base for its whole life.
func New(size int, base sieve.BaseList, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: pool size %d", sieve.ErrInvalidInput, size)
	}

	p := &Pool{
		log:    logrus.StandardLogger(),
		queues: make([]chan task, size),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := range p.queues {
		q := make(chan task, 1)
		p.queues[i] = q
		p.wg.Add(1)
		go p.run(i, sieve.NewWorker(base), q)
	}

	p.log.WithFields(logrus.Fields{
		"workers":     size,
		"base_primes": len(base),
	}).Debug("worker pool started")

	return p, nil
}

func (p *Pool) Size() int {
	return len(p.queues)
}

func (p *Pool) run(id int, w *sieve.Worker, tasks <-chan task) {
	defer p.wg.Done()

	for t := range tasks {
		start := time.Now()
		bitmap := w.Sieve(t.chunk)
		elapsed := time.Since(start)

		r := Result{
			Index:   t.index,
			Worker:  id,
			Chunk:   t.chunk,
			Tally:   bitmap.Tally(t.chunk.Low),
			Elapsed: elapsed,
		}
		if p.retain {
			r.Bitmap = bitmap
		}

		p.log.WithFields(logrus.Fields{
			"worker":     id,
			"chunk_low":  t.chunk.Low,
			"chunk_high": t.chunk.High,
			"primes":     r.Tally.Count,
			"elapsed":    elapsed,
		}).Debug("chunk sieved")

		t.reply <- r
	}
}

// Map sieves chunks, chunk i on worker i mod Size(), and blocks until every
// chunk is done. Results come back in chunk order.
func (p *Pool) Map(chunks []sieve.Chunk) ([]Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	replies := make(chan Result, len(chunks))
	go func() {
		for i, c := range chunks {
			p.queues[i%len(p.queues)] <- task{index: i, chunk: c, reply: replies}
		}
	}()

	results := make([]Result, len(chunks))
	for range chunks {
		r := <-replies
		results[r.Index] = r
	}

	return results, nil
}

// Close stops the workers and waits for them to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
}

// WorkerTimes sums Elapsed per worker. Workers that got no chunk report zero.
func WorkerTimes(size int, results []Result) []time.Duration {
	times := make([]time.Duration, size)
	for _, r := range results {
		times[r.Worker] += r.Elapsed
	}
	return times
}
