package cli

import (
	"cmp"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ganki/internal/pipeline"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export decks as an Anki package or an interchange document",
	}
	cmd.AddCommand(newExportApkgCmd(a), newExportGankiCmd(a))
	return cmd
}

func newExportApkgCmd(a *app) *cobra.Command {
	var (
		decks   []string
		out     string
		current bool
	)
	cmd := &cobra.Command{
		Use:   "apkg",
		Short: "Write an Anki .apkg package",
		Long: "Write every deck, or those selected by --deck id, label or namespace, plus\n" +
			"the media flagged for packaging. --current writes only the active deck.",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var err error
			if current {
				out = cmp.Or(out, a.session.Namespace()+".apkg")
				err = a.session.ExportDeck(ctx, out, a.progress(cmd))
			} else {
				out = cmp.Or(out, a.session.PackagePath())
				err = a.session.ExportPackage(ctx, out, a.progress(cmd), decks...)
			}
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]string{"file": out})
			}
			a.say(cmd, "Wrote %s", out)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&decks, "deck", nil, "deck id, label or namespace to export (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: <default_package>.apkg)")
	cmd.Flags().BoolVar(&current, "current", false, "export only the active deck")
	cmd.MarkFlagsMutuallyExclusive("deck", "current")
	return cmd
}

func newExportGankiCmd(a *app) *cobra.Command {
	var (
		decks []string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "ganki",
		Short: "Write a .ganki interchange document",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			out = cmp.Or(out, pipeline.DefaultDocumentFile)
			doc, err := a.session.ExportDocument(cmd.Context(), out, a.progress(cmd), decks...)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]any{"file": out, "namespaces": doc.Namespaces()})
			}
			a.say(cmd, "Wrote %d decks to %s", len(doc), out)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&decks, "deck", nil, "deck id, label or namespace to export (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: "+pipeline.DefaultDocumentFile+")")
	return cmd
}
