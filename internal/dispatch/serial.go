package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"segsieve/internal/metrics"
	"segsieve/internal/sieve"
)

// Serial runs the plain single-array sieve over [0, n]. There is no base
// list phase, so the whole elapsed time is sieve time.
type Serial struct {
	log logrus.FieldLogger
}

func NewSerial(log logrus.FieldLogger) *Serial {
	return &Serial{log: log}
}

func (s *Serial) Name() string { return StrategySerial }

func (s *Serial) Run(_ context.Context, n int) (metrics.Report, error) {
	if err := checkBound(n); err != nil {
		return metrics.Report{}, err
	}

	start := time.Now()
	bitmap := sieve.Sieve(n)
	elapsed := time.Since(start).Seconds()

	report := metrics.NewReport(StrategySerial, n, 1, metrics.Aggregate(0, elapsed))
	report.Primes = bitmap.Tally(0).Count

	s.log.WithFields(logrus.Fields{
		"n":       n,
		"primes":  report.Primes,
		"total_s": elapsed,
	}).Info("serial sieve complete")

	return finish(report), nil
}
