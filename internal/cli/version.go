package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ganki/pkg/ganki"
)

const modulePath = "github.com/mesh-intelligence/ganki"

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ganki version",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]string{"version": ganki.Version, "module": modulePath})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ganki v%s\nmodule: %s\n", ganki.Version, modulePath)
			return nil
		},
	}
}
