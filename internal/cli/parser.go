package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ganki/internal/parser"
)

func newParserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parser",
		Short: "Manage text parsers",
		Long: "Parsers are YAML sources with a pattern of named groups and a list of\n" +
			"field templates such as $reading or ${meaning}.",
	}
	cmd.AddCommand(
		newParserListCmd(a),
		newParserShowCmd(a),
		newParserSetCmd(a),
		newParserRemoveCmd(a),
		newParserUseCmd(a),
		newParserTestCmd(a),
	)
	return cmd
}

func newParserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List parsers",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := a.session.Parsers()
			names, current := reg.Names(), reg.CurrentName()
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]any{"current": current, "parsers": names})
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				mark := ""
				if name == current {
					mark = "*"
				}
				rows = append(rows, []string{mark, name})
			}
			printTable(cmd, []string{"", "Parser"}, rows)
			return nil
		},
	}
}

func newParserShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Print a parser source",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			reg := a.session.Parsers()
			name := reg.CurrentName()
			if len(argv) == 1 {
				name = argv[0]
			}
			src, err := reg.Get(name)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]string{"name": name, "source": src})
			}
			fmt.Fprint(cmd.OutOrStdout(), src)
			return nil
		},
	}
}

func newParserSetCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <name> [source]",
		Short: "Save a parser source",
		Long:  "Save a parser from the second argument, --file or stdin. The source must\ncompile.",
		Args:  args(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			src, err := readInput(cmd, argv[1:], file)
			if err != nil {
				return err
			}
			if err := a.session.Parsers().Set(argv[0], &src); err != nil {
				return err
			}
			a.say(cmd, "Saved parser %s", argv[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the source from file")
	return cmd
}

func newParserRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved parser",
		Args:    args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := a.session.Parsers().Set(argv[0], nil); err != nil {
				return err
			}
			a.say(cmd, "Removed parser %s", argv[0])
			return nil
		},
	}
}

func newParserUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the current parser",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := a.session.Parsers().SetCurrent(argv[0]); err != nil {
				return err
			}
			a.say(cmd, "Using parser %s", argv[0])
			return nil
		},
	}
}

func newParserTestCmd(a *app) *cobra.Command {
	var sourceFile, inputFile string
	cmd := &cobra.Command{
		Use:   "test [name] [text]...",
		Short: "Preview the tuples a parser produces without adding notes",
		Long: "Run a saved parser, or the unsaved source in --source, over text from the\n" +
			"arguments, --input or stdin.",
		RunE: func(cmd *cobra.Command, argv []string) error {
			reg := a.session.Parsers()
			var (
				tuples [][]string
				err    error
			)
			if sourceFile != "" {
				src, rerr := readInput(cmd, nil, sourceFile)
				if rerr != nil {
					return rerr
				}
				input, rerr := readInput(cmd, argv, inputFile)
				if rerr != nil {
					return rerr
				}
				tuples, err = parser.Test(src, input)
			} else {
				if len(argv) == 0 {
					return usageError{errors.New("parser test needs a parser name or --source")}
				}
				input, rerr := readInput(cmd, argv[1:], inputFile)
				if rerr != nil {
					return rerr
				}
				tuples, err = reg.Run(argv[0], input)
			}
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, tuples)
			}
			width := 0
			for _, t := range tuples {
				width = max(width, len(t))
			}
			if width == 0 {
				a.say(cmd, "No tuples")
				return nil
			}
			headers := make([]string, width)
			for i := range headers {
				headers[i] = fmt.Sprintf("Field %d", i+1)
			}
			printTable(cmd, headers, tuples)
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceFile, "source", "", "test an unsaved source read from this file")
	cmd.Flags().StringVar(&inputFile, "input", "", "read text from file")
	return cmd
}
