package cli

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"segsieve/internal/dispatch"
	"segsieve/internal/sieve"
)

func (a *app) primesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "primes N",
		Short: "Print every prime in [0, N] in ascending order",
		Example: `  segsieve primes 100
  segsieve primes 100000000 --digest`,
		RunE: a.primes,
	}

	cmd.Flags().IntP(FLAG_WORKERS, "p", 0, "number of workers (0 = physical cores)")
	cmd.Flags().Bool(FLAG_DIGEST, false, "print only the prime count and a sha256 digest of the primes")
	return cmd
}

func (a *app) primes(cmd *cobra.Command, args []string) error {
	n, err := parseBound(args)
	if err != nil {
		return err
	}
	digest, err := cmd.Flags().GetBool(FLAG_DIGEST)
	if err != nil {
		return err
	}

	results, err := dispatch.NewPool(a.cfg.Workers, a.log).Collect(n)
	if err != nil {
		return err
	}

	if digest {
		d := sieve.NewDigest()
		for _, r := range results {
			d.Write(r.Chunk.Low, r.Bitmap)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "count=%d sha256=%s\n", d.Count(), d.Sum())
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	var buf []byte
	for _, r := range results {
		for _, p := range r.Bitmap.Primes(r.Chunk.Low) {
			buf = strconv.AppendInt(buf[:0], int64(p), 10)
			buf = append(buf, '\n')
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
