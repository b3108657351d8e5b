// Package dispatch runs a complete sieve of [0, N] under one execution
// topology and reports how long each phase took.
//
// Every strategy builds the base prime list exactly once, on the
// coordinator, and hands it to the workers: installed into each pool
// worker at start-up, or broadcast to the ranks of a cluster.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"segsieve/internal/metrics"
	"segsieve/internal/sieve"
	"segsieve/internal/sysinfo"
)

const (
	StrategyPool    = "pool"
	StrategyCluster = "cluster"
	StrategySerial  = metrics.StrategySerial
)

// Strategy runs one sieve of [0, n] and reports its timings. ctx only
// bounds coordination between cluster ranks; a sieve that has started is
// not interrupted.
type Strategy interface {
	Name() string
	Run(ctx context.Context, n int) (metrics.Report, error)
}

// New returns the named strategy with the given worker count.
func New(name string, workers int, log logrus.FieldLogger) (Strategy, error) {
	switch strings.ToLower(name) {
	case StrategyPool, "":
		return NewPool(workers, log), nil
	case StrategyCluster:
		return NewCluster(workers, log), nil
	case StrategySerial:
		return NewSerial(log), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q (want pool, cluster or serial)", sieve.ErrInvalidInput, name)
	}
}

// buildBase times the one-off base prime build.
func buildBase(n int) (sieve.BaseList, float64) {
	start := time.Now()
	base := sieve.BasePrimes(n)
	return base, time.Since(start).Seconds()
}

func checkBound(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: bound %d is negative", sieve.ErrInvalidInput, n)
	}
	return nil
}

// finish stamps the coordinator-side facts every report carries.
func finish(r metrics.Report) metrics.Report {
	r.MemoryMB = sysinfo.MemoryMB()
	r.CPU = sysinfo.BrandName()
	return r
}

func countEmpty(chunks []sieve.Chunk) int {
	empty := 0
	for _, c := range chunks {
		if c.Empty() {
			empty++
		}
	}
	return empty
}
