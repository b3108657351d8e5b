package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, the --config file,
SEGSIEVE_* environment variables and flags. Workers is shown resolved.`,
		Args: noArgs,
		RunE: a.showConfig,
	}

	cmd.Flags().IntP(FLAG_WORKERS, "p", 0, "number of workers (0 = physical cores)")
	cmd.Flags().StringP(FLAG_STRATEGY, "s", "", "execution strategy: pool, cluster or serial")
	return cmd
}

func (a *app) showConfig(cmd *cobra.Command, args []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(a.cfg); err != nil {
		return err
	}
	return enc.Close()
}
