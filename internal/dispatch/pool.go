package dispatch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"segsieve/internal/metrics"
	"segsieve/internal/pool"
	"segsieve/internal/sieve"
)

// Pool sieves on a shared-memory worker pool, one chunk per worker.
type Pool struct {
	workers int
	log     logrus.FieldLogger
}

func NewPool(workers int, log logrus.FieldLogger) *Pool {
	return &Pool{workers: workers, log: log}
}

func (s *Pool) Name() string { return StrategyPool }

func (s *Pool) Run(_ context.Context, n int) (metrics.Report, error) {
	base, build, results, err := s.sieve(n)
	if err != nil {
		return metrics.Report{}, err
	}

	var tally sieve.Tally
	for _, r := range results {
		tally = tally.Add(r.Tally)
	}

	timing := metrics.AggregateRecords(metrics.Records(build, pool.WorkerTimes(s.workers, results)))
	report := metrics.NewReport(StrategyPool, n, s.workers, timing)
	report.Primes = tally.Count

	s.log.WithFields(logrus.Fields{
		"n":           n,
		"workers":     s.workers,
		"base_primes": len(base),
		"primes":      tally.Count,
		"total_s":     timing.TotalSeconds,
	}).Info("pool sieve complete")

	return finish(report), nil
}

// Collect sieves [0, n] like Run but keeps every chunk's bitmap, in chunk
// order, for callers that consume the primes themselves.
func (s *Pool) Collect(n int) ([]pool.Result, error) {
	_, _, results, err := s.sieve(n, pool.WithRetain())
	return results, err
}

func (s *Pool) sieve(n int, opts ...pool.Option) (sieve.BaseList, float64, []pool.Result, error) {
	if err := checkBound(n); err != nil {
		return nil, 0, nil, err
	}

	chunks, err := sieve.Partition(n, s.workers)
	if err != nil {
		return nil, 0, nil, err
	}
	if empty := countEmpty(chunks); empty > 0 {
		s.log.WithFields(logrus.Fields{
			"n":       n,
			"workers": s.workers,
			"empty":   empty,
		}).Warn("more workers than candidates, some chunks are empty")
	}

	base, build := buildBase(n)
	s.log.WithFields(logrus.Fields{
		"base_primes": len(base),
		"build_s":     build,
	}).Debug("base primes built")

	p, err := pool.New(s.workers, base, append([]pool.Option{pool.WithLogger(s.log)}, opts...)...)
	if err != nil {
		return nil, 0, nil, err
	}
	defer p.Close()

	results, err := p.Map(chunks)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("sieve chunks: %w", err)
	}
	return base, build, results, nil
}
