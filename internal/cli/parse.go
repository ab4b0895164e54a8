package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// readInput returns the joined arguments, the file named by path, or stdin,
// in that order.
func readInput(cmd *cobra.Command, argv []string, path string) (string, error) {
	if len(argv) > 0 {
		return strings.Join(argv, "\n"), nil
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func newParseCmd(a *app) *cobra.Command {
	var parserName, file string
	cmd := &cobra.Command{
		Use:   "parse [text]...",
		Short: "Parse text into notes of the active deck",
		Long: "Run a parser over text and add every resulting tuple as a note. Text comes\n" +
			"from the arguments, --file or stdin. The current parser is used unless\n--parser names another.",
		RunE: func(cmd *cobra.Command, argv []string) error {
			input, err := readInput(cmd, argv, file)
			if err != nil {
				return err
			}
			notes, err := a.session.ParseInput(cmd.Context(), parserName, input)
			if err != nil {
				return err
			}
			rows := noteRows(notes, nil)
			if a.flags.jsonMode {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				a.say(cmd, "No notes parsed")
				return nil
			}
			printNotes(cmd, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&parserName, "parser", "p", "", "parser to run (default: current parser)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file")
	return cmd
}
