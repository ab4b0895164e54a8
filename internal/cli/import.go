package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ganki/internal/pipeline"
)

func newImportCmd(a *app) *cobra.Command {
	var opts pipeline.Options
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a .ganki interchange document",
		Long: "Write every valid entry of the document into its namespace, registering\n" +
			"decks and merging parsers. Invalid entries are skipped and reported.\n" +
			"--replace clears each target deck before writing.",
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			res, err := a.session.Import(cmd.Context(), argv[0], opts)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, res)
			}
			a.say(cmd, "Imported %d decks", len(res.Imported))
			if len(res.Skipped) > 0 {
				rows := make([][]string, 0, len(res.Skipped))
				for _, s := range res.Skipped {
					rows = append(rows, []string{s.Namespace, s.Reason})
				}
				printTable(cmd, []string{"Skipped", "Reason"}, rows)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "clear each target deck before writing")
	return cmd
}
