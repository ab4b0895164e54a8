package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ganki/internal/deck"
)

// noteRow is the JSON form of one note.
type noteRow struct {
	GUID      string   `json:"guid"`
	Model     string   `json:"model"`
	Fields    []string `json:"fields"`
	Duplicate string   `json:"duplicate,omitempty"`
	Peer      string   `json:"peer,omitempty"`
}

func noteRows(notes []*deck.Note, dups map[string]deck.Duplicate) []noteRow {
	out := make([]noteRow, 0, len(notes))
	for _, n := range notes {
		r := noteRow{GUID: n.GUID(), Model: n.Model().Name(), Fields: n.Fields()}
		if d, ok := dups[n.GUID()]; ok && d.Kind != deck.NotDuplicate {
			r.Duplicate, r.Peer = d.Kind.String(), d.Peer
		}
		out = append(out, r)
	}
	return out
}

// printNotes renders notes as a table with one column per field.
func printNotes(cmd *cobra.Command, rows []noteRow) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.Fields))
	}
	headers := []string{"GUID", "Model"}
	for i := range width {
		headers = append(headers, "Field "+strconv.Itoa(i+1))
	}
	headers = append(headers, "Duplicate")

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := append([]string{r.GUID, r.Model}, r.Fields...)
		for len(line) < width+2 {
			line = append(line, "")
		}
		dup := r.Duplicate
		if r.Peer != "" {
			dup += " of " + r.Peer
		}
		table = append(table, append(line, dup))
	}
	printTable(cmd, headers, table)
}

func newNoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage the notes of the active deck",
	}
	cmd.AddCommand(newNoteListCmd(a), newNoteAddCmd(a), newNoteRemoveCmd(a))
	return cmd
}

func newNoteListCmd(a *app) *cobra.Command {
	var dupsOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes of the active deck",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := noteRows(a.session.Notes(), a.session.Duplicates())
			if dupsOnly {
				kept := rows[:0]
				for _, r := range rows {
					if r.Duplicate != "" {
						kept = append(kept, r)
					}
				}
				rows = kept
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, rows)
			}
			printNotes(cmd, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dupsOnly, "duplicates", false, "show only notes that duplicate another note")
	return cmd
}

func newNoteAddCmd(a *app) *cobra.Command {
	var model int
	cmd := &cobra.Command{
		Use:   "add <field>...",
		Short: "Add a note to the active deck",
		Long:  "Add a note with one argument per model field. --model selects the model\nfor this and later notes.",
		Args:  args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if cmd.Flags().Changed("model") {
				if err := a.session.SetModel(model); err != nil {
					return err
				}
			}
			n, err := a.session.AddNote(cmd.Context(), argv)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, noteRows([]*deck.Note{n}, nil)[0])
			}
			a.say(cmd, "Added note %s", n.GUID())
			return nil
		},
	}
	cmd.Flags().IntVar(&model, "model", 0, "model type: 0 Kanji Guess, 1 Kanji Guess strokeless")
	return cmd
}

func newNoteRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <guid>...",
		Aliases: []string{"rm"},
		Short:   "Remove notes from the active deck",
		Args:    args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := a.session.RemoveNotes(cmd.Context(), argv...); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]any{"removed": argv})
			}
			a.say(cmd, "Removed %d notes", len(argv))
			return nil
		},
	}
}
