package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"segsieve/internal/config"
)

const (
	FLAG_CONFIG    = "config"
	FLAG_LOG_LEVEL = "log-level"
	FLAG_WORKERS   = "workers"
	FLAG_STRATEGY  = "strategy"
	FLAG_FORMAT    = "format"
	FLAG_RECORD    = "record"
	FLAG_RANK      = "rank"
	FLAG_SIZE      = "size"
	FLAG_ADDR      = "addr"
	FLAG_TIMEOUT   = "timeout"
	FLAG_DIGEST    = "digest"
	FLAG_LIMIT     = "limit"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	FLAG_LOG_LEVEL: config.KeyLogLevel,
	FLAG_WORKERS:   config.KeyWorkers,
	FLAG_SIZE:      config.KeyWorkers,
	FLAG_STRATEGY:  config.KeyStrategy,
	FLAG_FORMAT:    config.KeyFormat,
	FLAG_RECORD:    config.KeyRecord,
	FLAG_ADDR:      config.KeyClusterAddr,
	FLAG_TIMEOUT:   config.KeyClusterTimeout,
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *logrus.Logger
}

// NewRootCommand builds the segsieve command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "segsieve",
		Short: "Parallel segmented Sieve of Eratosthenes",
		Long: `segsieve finds every prime in [0, N] by splitting the range into one
contiguous chunk per worker and sieving the chunks in parallel with a
shared list of base primes up to sqrt(N).

Workers run either as a goroutine pool in this process, as ranks of an
in-process cluster, or as separate processes connected over TCP (see
"segsieve rank").`,
		// Don't show usage on every error, Execute decides
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().String(FLAG_CONFIG, "", "YAML configuration file")
	root.PersistentFlags().String(FLAG_LOG_LEVEL, "warn", "log level (debug, info, warn, error)")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(
		a.runCommand(),
		a.rankCommand(),
		a.primesCommand(),
		a.historyCommand(),
		a.configCommand(),
		versionCommand(),
	)
	return root
}

// Execute runs the command line of this process.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCommand()
	root.SetContext(ctx)
	return execute(root)
}

func execute(root *cobra.Command) error {
	cmd, err := root.ExecuteC()
	if err != nil && isUsage(err) {
		cmd.PrintErr(cmd.UsageString())
	}
	return err
}

// setup binds the executing command's flags, loads the configuration and
// builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = a.v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return bindErr
	}

	path, err := cmd.Flags().GetString(FLAG_CONFIG)
	if err != nil {
		return err
	}
	cfg, err := config.Load(a.v, path)
	if err != nil {
		return &usageError{err: err}
	}

	log, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.log.WithFields(logrus.Fields{
		"command":  cmd.Name(),
		"workers":  cfg.Workers,
		"strategy": cfg.Strategy,
	}).Debug("configuration loaded")
	return nil
}
