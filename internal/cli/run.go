package cli

import (
	"github.com/spf13/cobra"

	"segsieve/internal/dispatch"
	"segsieve/internal/metrics"
	"segsieve/internal/store"
)

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run N",
		Short: "Sieve [0, N] and report build, sieve and total time",
		Example: `  segsieve run 100000000
  segsieve run 1000000 --strategy cluster --workers 8 --format json
  segsieve run 50000 --strategy serial`,
		RunE: a.run,
	}

	cmd.Flags().IntP(FLAG_WORKERS, "p", 0, "number of workers (0 = physical cores)")
	cmd.Flags().StringP(FLAG_STRATEGY, "s", dispatch.StrategyPool, "execution strategy: pool, cluster or serial")
	cmd.Flags().StringP(FLAG_FORMAT, "f", string(metrics.FormatText), "report format: text, json or yaml")
	cmd.Flags().String(FLAG_RECORD, "", "append the report to this SQLite run history")
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	n, err := parseBound(args)
	if err != nil {
		return err
	}

	strategy, err := dispatch.New(a.cfg.Strategy, a.cfg.Workers, a.log)
	if err != nil {
		return err
	}

	report, err := strategy.Run(cmd.Context(), n)
	if err != nil {
		return err
	}
	return a.emit(cmd, report)
}

// emit writes report to stdout in the configured format and records it
// when a run history is configured.
func (a *app) emit(cmd *cobra.Command, report metrics.Report) error {
	format, err := metrics.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}
	if err := metrics.Write(cmd.OutOrStdout(), report, format); err != nil {
		return err
	}

	if a.cfg.Record == "" {
		return nil
	}

	s, err := store.Open(a.cfg.Record, a.log)
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.Record(cmd.Context(), report)
	return err
}
