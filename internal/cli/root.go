// Package cli implements the ganki command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/session"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by one command invocation.
type app struct {
	flags   rootFlags
	v       *viper.Viper
	cfg     types.Config
	log     *zap.SugaredLogger
	session *session.Session
}

// NewRootCmd creates the top-level "ganki" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ganki",
		Short: "A flashcard deck editor that exports Anki packages",
		Long: "ganki keeps named decks of two-field notes in a local workspace,\n" +
			"parses free text into notes and exports Anki .apkg packages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipSession(cmd) {
				return nil
			}
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .ganki-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newDeckCmd(a),
		newNoteCmd(a),
		newParseCmd(a),
		newParserCmd(a),
		newMediaCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// skipSession reports whether cmd runs without a workspace.
func skipSession(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	}
	return false
}

// open loads the configuration and opens the workspace session.
func (a *app) open(ctx context.Context) error {
	v, cfg, err := loadConfig(a.flags)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}
	s, err := session.Open(ctx, session.Options{Config: cfg, Log: log})
	if err != nil {
		_ = log.Sync()
		return err
	}
	a.v, a.cfg, a.log, a.session = v, cfg, log, s
	log.Debugw("workspace opened", "data_dir", cfg.DataDir, "namespace", s.Namespace())
	return nil
}

// close releases the session. It is safe to call when nothing was opened.
func (a *app) close() error {
	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	_ = a.log.Sync()
	a.session = nil
	return err
}

// run executes the command tree with args and closes the session afterwards.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Execute runs the CLI against the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return exitCode(err)
}

// usageError marks bad flags or arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// userErrors are caused by input the user can correct.
var userErrors = []error{
	types.ErrInvalidConfig,
	types.ErrNamespaceNotFound,
	types.ErrInvalidName,
	types.ErrReservedNamespace,
	types.ErrDuplicateNamespace,
	types.ErrEmptyLabel,
	types.ErrFieldCount,
	types.ErrEmptyField,
	types.ErrNoteMissing,
	types.ErrMediaNotFound,
	types.ErrParserNotFound,
	types.ErrInvalidParser,
	types.ErrParserFailed,
	types.ErrEmptyInput,
	types.ErrInvalidDocument,
	types.ErrInvalidData,
	types.ErrLocked,
}

// exitCode maps an error to exitUserError or exitSysError.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue usageError
	if errors.As(err, &ue) {
		return exitUserError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// args wraps a positional argument validator so that its failures count as
// usage errors.
func args(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := fn(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}
