package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"segsieve/internal/store"
)

func (a *app) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded with --record, newest first",
		Args:  noArgs,
		RunE:  a.history,
	}

	cmd.Flags().String(FLAG_RECORD, "", "SQLite run history to read")
	cmd.Flags().IntP(FLAG_LIMIT, "n", 20, "show at most this many runs (0 = all)")
	return cmd
}

func (a *app) history(cmd *cobra.Command, args []string) error {
	if a.cfg.Record == "" {
		return usagef("history needs a run history, set --%s", FLAG_RECORD)
	}
	limit, err := cmd.Flags().GetInt(FLAG_LIMIT)
	if err != nil {
		return err
	}

	s, err := store.Open(a.cfg.Record, a.log)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	total, err := s.Count(cmd.Context())
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"shown": len(runs),
		"total": total,
		"path":  a.cfg.Record,
	}).Info("run history")

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECORDED\tSTRATEGY\tN\tWORKERS\tBUILD_S\tSIEVE_S\tTOTAL_S\tMEM_MB\tPRIMES")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.1f\t%d\n",
			r.ID, r.RecordedAt.Local().Format(time.DateTime), r.Strategy, r.N, r.Workers,
			r.BuildSeconds, r.SieveSeconds, r.TotalSeconds, r.MemoryMB, r.Primes)
	}
	return w.Flush()
}
