package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// initResult is the JSON form of a successful init.
type initResult struct {
	ConfigFile string `json:"config_file"`
	DataDir    string `json:"data_dir"`
	Namespace  string `json:"namespace"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the ganki workspace",
		Long: "Create the configuration directory with a default config.yaml, then\n" +
			"create the data directory and open the default deck.",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := initResult{
				ConfigFile: a.v.ConfigFileUsed(),
				DataDir:    a.cfg.DataDir,
				Namespace:  a.session.Namespace(),
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ganki initialized in %s (deck %s)\n", res.DataDir, res.Namespace)
			return nil
		},
	}
}
