package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"segsieve/internal/cluster"
	"segsieve/internal/dispatch"
	"segsieve/internal/metrics"
)

func (a *app) rankCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [N]",
		Short: "Run one rank of a TCP cluster",
		Long: `Run one process of a cluster connected over TCP. Rank 0 takes the bound N,
listens on --addr for the other ranks, builds and broadcasts the base primes,
and prints the report once every rank has sieved its chunk. Every other rank
connects to rank 0 at --addr and learns N from the broadcast; positional
arguments given to those ranks are ignored.`,
		Example: `  segsieve rank 10000000 --rank 0 --size 3 --addr :7946 &
  segsieve rank --rank 1 --size 3 --addr 127.0.0.1:7946 &
  segsieve rank --rank 2 --size 3 --addr 127.0.0.1:7946`,
		RunE: a.runRank,
	}

	cmd.Flags().Int(FLAG_RANK, 0, "rank of this process, 0 coordinates")
	cmd.Flags().Int(FLAG_SIZE, 0, "number of ranks (0 = physical cores)")
	cmd.Flags().String(FLAG_ADDR, "", "address rank 0 listens on and the other ranks dial")
	cmd.Flags().Duration(FLAG_TIMEOUT, 0, "how long to wait for the cluster to connect")
	cmd.Flags().StringP(FLAG_FORMAT, "f", string(metrics.FormatText), "report format: text, json or yaml")
	cmd.Flags().String(FLAG_RECORD, "", "append the report to this SQLite run history (rank 0)")
	return cmd
}

func (a *app) runRank(cmd *cobra.Command, args []string) error {
	rank, err := cmd.Flags().GetInt(FLAG_RANK)
	if err != nil {
		return err
	}
	size := a.cfg.Workers
	if rank < 0 || rank >= size {
		return usagef("rank %d is outside a cluster of size %d", rank, size)
	}

	n := 0
	if rank == dispatch.Root {
		if n, err = parseBound(args); err != nil {
			return err
		}
	} else if len(args) > 0 {
		a.log.WithField("args", args).Debug("ignoring arguments on a non-coordinating rank")
	}

	comm, err := a.connect(cmd.Context(), rank, size)
	if err != nil {
		return err
	}
	defer comm.Close()

	report, err := dispatch.RunRank(cmd.Context(), comm, n, a.log)
	if err != nil {
		return err
	}
	if rank != dispatch.Root {
		return nil
	}
	return a.emit(cmd, report)
}

// connect joins the cluster, giving up after the configured timeout.
func (a *app) connect(ctx context.Context, rank, size int) (*cluster.Comm, error) {
	if size == 1 {
		comms, err := cluster.NewLocal(1)
		if err != nil {
			return nil, err
		}
		return comms[0], nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Cluster.Timeout)
	defer cancel()

	log := a.log.WithFields(logrus.Fields{
		"rank": rank,
		"size": size,
		"addr": a.cfg.Cluster.Addr,
	})

	if rank != dispatch.Root {
		log.Info("joining cluster")
		return cluster.Dial(ctx, a.cfg.Cluster.Addr, rank, size, a.log)
	}

	l, err := cluster.Listen(a.cfg.Cluster.Addr, a.log)
	if err != nil {
		return nil, err
	}
	log.Info("waiting for ranks")
	return l.Accept(ctx, size)
}
