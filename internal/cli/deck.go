package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// deckRow is the JSON form of one registered deck.
type deckRow struct {
	Namespace string `json:"namespace"`
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	Active    bool   `json:"active"`
}

func newDeckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Manage decks",
	}
	cmd.AddCommand(
		newDeckListCmd(a),
		newDeckAddCmd(a),
		newDeckRenameCmd(a),
		newDeckUseCmd(a),
		newDeckCopyCmd(a),
	)
	return cmd
}

func newDeckListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered decks",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := a.session.Registry()
			active := a.session.Namespace()
			entries := reg.List()

			var out []deckRow
			for _, ns := range reg.Namespaces() {
				d := entries[ns]
				out = append(out, deckRow{Namespace: ns, ID: d.ID, Label: d.Label, Active: ns == active})
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(out))
			for _, d := range out {
				mark := ""
				if d.Active {
					mark = "*"
				}
				rows = append(rows, []string{mark, d.Namespace, strconv.FormatInt(d.ID, 10), d.Label})
			}
			printTable(cmd, []string{"", "Namespace", "ID", "Label"}, rows, alignLeft, alignLeft, alignRight)
			return nil
		},
	}
}

func newDeckAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>...",
		Short: "Create a deck and make it active",
		Long:  "Create a deck labelled with the joined arguments. The namespace key is the\nlabel with spaces replaced by underscores.",
		Args:  args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			ns, err := a.session.AddDeck(cmd.Context(), strings.Join(argv, " "))
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				d := a.session.DeckData()
				return writeJSON(cmd, deckRow{Namespace: ns, ID: d.ID, Label: d.Label, Active: true})
			}
			a.say(cmd, "Created deck %s", ns)
			return nil
		},
	}
}

func newDeckRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <label>...",
		Short: "Change the label of the active deck",
		Args:  args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := a.session.Rename(strings.Join(argv, " ")); err != nil {
				return err
			}
			d := a.session.DeckData()
			if a.flags.jsonMode {
				return writeJSON(cmd, deckRow{Namespace: a.session.Namespace(), ID: d.ID, Label: d.Label, Active: true})
			}
			a.say(cmd, "Renamed %s to %q", a.session.Namespace(), d.Label)
			return nil
		},
	}
}

func newDeckUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <namespace>",
		Short: "Switch the active deck",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := a.session.SwitchNamespace(cmd.Context(), argv[0]); err != nil {
				return err
			}
			d := a.session.DeckData()
			if a.flags.jsonMode {
				return writeJSON(cmd, deckRow{Namespace: argv[0], ID: d.ID, Label: d.Label, Active: true})
			}
			a.say(cmd, "Using deck %s (%d notes)", argv[0], len(a.session.Notes()))
			return nil
		},
	}
}

func newDeckCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <namespace> <guid>...",
		Short: "Copy notes of the active deck into another deck",
		Args:  args(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			n, err := a.session.CopyToDeck(cmd.Context(), argv[0], argv[1:]...)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]any{"target": argv[0], "copied": n})
			}
			a.say(cmd, "Copied %d notes to %s", n, argv[0])
			return nil
		},
	}
}
