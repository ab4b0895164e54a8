package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ganki/internal/media"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// mediaRow is the JSON form of one media record, without its bytes.
type mediaRow struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Type    string `json:"type,omitempty"`
	Desc    string `json:"desc,omitempty"`
	Loaded  bool   `json:"loaded"`
	Package bool   `json:"package"`
}

func toMediaRow(m *types.Media) mediaRow {
	return mediaRow{
		Name:    m.Name,
		Size:    m.Info.Size,
		Type:    m.Info.Type,
		Desc:    m.Info.Desc,
		Loaded:  m.Loaded(),
		Package: m.Package,
	}
}

func (r mediaRow) cells() []string {
	size := "-"
	if r.Loaded {
		size = humanize.Bytes(uint64(r.Size))
	}
	return []string{r.Name, size, r.Type, strconv.FormatBool(r.Package), r.Desc}
}

var mediaHeaders = []string{"Name", "Size", "Type", "Package", "Description"}

func (a *app) printMedia(cmd *cobra.Command, m *types.Media) error {
	row := toMediaRow(m)
	if a.flags.jsonMode {
		return writeJSON(cmd, row)
	}
	printTable(cmd, mediaHeaders, [][]string{row.cells()}, alignLeft, alignRight)
	return nil
}

func newMediaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage shared media assets",
	}
	cmd.AddCommand(
		newMediaListCmd(a),
		newMediaAddCmd(a),
		newMediaLoadCmd(a),
		newMediaShowCmd(a),
		newMediaUpdateCmd(a),
		newMediaRemoveCmd(a),
	)
	return cmd
}

func newMediaListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List media assets",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := a.session.Media()
			out := []mediaRow{}
			for _, name := range mgr.List() {
				m, err := mgr.Get(cmd.Context(), name)
				if err != nil {
					return err
				}
				out = append(out, toMediaRow(m))
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, out)
			}
			rows := make([][]string, 0, len(out))
			for _, r := range out {
				rows = append(rows, r.cells())
			}
			printTable(cmd, mediaHeaders, rows, alignLeft, alignRight)
			return nil
		},
	}
}

func newMediaAddCmd(a *app) *cobra.Command {
	var (
		name, desc string
		pkg        bool
	)
	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Add a media asset",
		Long: "Add a file as a media asset named after its base name, or --name. Without\n" +
			"a file an unloaded placeholder named \"New media (n)\" is registered.",
		Args: args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			ctx := cmd.Context()
			mgr := a.session.Media()
			if len(argv) == 0 {
				placeholder, err := mgr.AddPlaceholder(ctx)
				if err != nil {
					return err
				}
				m, err := mgr.Get(ctx, placeholder)
				if err != nil {
					return err
				}
				return a.printMedia(cmd, m)
			}

			data, err := os.ReadFile(argv[0])
			if err != nil {
				return fmt.Errorf("read media: %w", err)
			}
			if name == "" {
				name = filepath.Base(argv[0])
			}
			if err := mgr.Put(ctx, &types.Media{Name: name, Info: types.MediaInfo{Desc: desc}}); err != nil {
				return err
			}
			if _, err := mgr.Attach(ctx, name, data, ""); err != nil {
				return err
			}
			m, err := mgr.Update(ctx, name, media.Update{Package: &pkg})
			if err != nil {
				return err
			}
			return a.printMedia(cmd, m)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "media name (default: file base name)")
	cmd.Flags().StringVar(&desc, "desc", "", "description")
	cmd.Flags().BoolVar(&pkg, "package", false, "include the asset in exported packages")
	return cmd
}

func newMediaLoadCmd(a *app) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "load <name> <file>",
		Short: "Load file bytes into an existing media asset",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			data, err := os.ReadFile(argv[1])
			if err != nil {
				return fmt.Errorf("read media: %w", err)
			}
			m, err := a.session.Media().Attach(cmd.Context(), argv[0], data, contentType)
			if err != nil {
				return err
			}
			return a.printMedia(cmd, m)
		},
	}
	cmd.Flags().StringVar(&contentType, "type", "", "content type (default: detected from the data)")
	return cmd
}

func newMediaShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one media asset",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			m, err := a.session.Media().Get(cmd.Context(), argv[0])
			if err != nil {
				return err
			}
			return a.printMedia(cmd, m)
		},
	}
}

func newMediaUpdateCmd(a *app) *cobra.Command {
	var (
		name, desc string
		pkg        bool
	)
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Rename a media asset or change its description or package flag",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var u media.Update
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("desc") {
				u.Desc = &desc
			}
			if cmd.Flags().Changed("package") {
				u.Package = &pkg
			}
			m, err := a.session.Media().Update(cmd.Context(), argv[0], u)
			if err != nil {
				return err
			}
			return a.printMedia(cmd, m)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&desc, "desc", "", "new description")
	cmd.Flags().BoolVar(&pkg, "package", false, "include the asset in exported packages")
	return cmd
}

func newMediaRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a media asset",
		Args:    args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := a.session.Media().Remove(cmd.Context(), argv[0]); err != nil {
				return err
			}
			a.say(cmd, "Removed media %s", argv[0])
			return nil
		},
	}
}
