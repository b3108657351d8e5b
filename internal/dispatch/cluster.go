package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"segsieve/internal/cluster"
	"segsieve/internal/metrics"
	"segsieve/internal/sieve"
)

// Root is the coordinating rank.
const Root = 0

// Plan is what the coordinator broadcasts before the sieve phase.
type Plan struct {
	N            int            `json:"n"`
	Base         sieve.BaseList `json:"base"`
	BuildSeconds float64        `json:"build_s"`
}

// Cluster runs the message-passing variant with every rank inside this
// process, connected by channels.
type Cluster struct {
	ranks int
	log   logrus.FieldLogger
}

func NewCluster(ranks int, log logrus.FieldLogger) *Cluster {
	return &Cluster{ranks: ranks, log: log}
}

func (s *Cluster) Name() string { return StrategyCluster }

func (s *Cluster) Run(ctx context.Context, n int) (metrics.Report, error) {
	if err := checkBound(n); err != nil {
		return metrics.Report{}, err
	}
	if s.ranks < 1 {
		return metrics.Report{}, fmt.Errorf("%w: cluster size %d", sieve.ErrInvalidInput, s.ranks)
	}

	comms, err := cluster.NewLocal(s.ranks)
	if err != nil {
		return metrics.Report{}, err
	}

	var report metrics.Report
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range comms {
		c := c
		g.Go(func() error {
			defer c.Close()

			r, err := RunRank(gctx, c, n, s.log)
			if c.Rank() == Root {
				report = r
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return metrics.Report{}, err
	}

	return report, nil
}

// RunRank is the program every rank of a cluster runs. Only the root reads
// n: it builds the base primes and broadcasts them with n and the build
// time. Each rank then sieves the chunk its rank selects and the timings
// and prime counts are reduced at the root. Only the root's report is
// meaningful.
func RunRank(ctx context.Context, comm *cluster.Comm, n int, log logrus.FieldLogger) (metrics.Report, error) {
	log = log.WithField("rank", comm.Rank())

	var plan Plan
	if comm.Rank() == Root {
		if err := checkBound(n); err != nil {
			return metrics.Report{}, err
		}
		base, build := buildBase(n)
		plan = Plan{N: n, Base: base, BuildSeconds: build}
		log.WithFields(logrus.Fields{
			"base_primes": len(base),
			"build_s":     build,
		}).Debug("base primes built")
	}

	if err := comm.Bcast(ctx, Root, &plan); err != nil {
		return metrics.Report{}, fmt.Errorf("broadcast plan: %w", err)
	}

	chunk, err := sieve.ChunkFor(plan.N, comm.Size(), comm.Rank())
	if err != nil {
		return metrics.Report{}, err
	}

	start := time.Now()
	bitmap := sieve.NewWorker(plan.Base).Sieve(chunk)
	sieveSeconds := time.Since(start).Seconds()
	tally := bitmap.Tally(chunk.Low)

	log.WithFields(logrus.Fields{
		"chunk_low":  chunk.Low,
		"chunk_high": chunk.High,
		"primes":     tally.Count,
		"sieve_s":    sieveSeconds,
	}).Debug("chunk sieved")

	maxes, err := comm.ReduceMax(ctx, Root, sieveSeconds, plan.BuildSeconds+sieveSeconds)
	if err != nil {
		return metrics.Report{}, fmt.Errorf("reduce timings: %w", err)
	}
	counts, err := comm.ReduceSum(ctx, Root, int64(tally.Count))
	if err != nil {
		return metrics.Report{}, fmt.Errorf("reduce prime counts: %w", err)
	}

	if comm.Rank() != Root {
		return metrics.Report{}, nil
	}

	report := metrics.NewReport(StrategyCluster, plan.N, comm.Size(), metrics.Timing{
		BuildSeconds: plan.BuildSeconds,
		SieveSeconds: maxes[0],
		TotalSeconds: maxes[1],
	})
	report.Primes = int(counts[0])

	log.WithFields(logrus.Fields{
		"n":       plan.N,
		"ranks":   comm.Size(),
		"primes":  report.Primes,
		"total_s": report.TotalSeconds,
	}).Info("cluster sieve complete")

	return finish(report), nil
}
