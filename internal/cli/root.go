package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/toyz/svcplan/internal/config"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/utils"
)

var version = "dev"

// SetVersion sets the version reported by --version and the version command
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// errReported marks a failure whose details were already written
var errReported = errors.New(errors.UnknownErrorCode, "failed")

type globalFlags struct {
	configFile    string
	format        string
	verbose       bool
	quiet         bool
	noConventions bool
	designTime    bool
	parallelism   int
	rules         string
}

// overrides returns the flags the user set, keyed like the config file
func (g *globalFlags) overrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	out := make(map[string]any)
	if flags.Changed("format") {
		out["output.format"] = g.format
	}
	if flags.Changed("verbose") {
		out["output.verbose"] = g.verbose
	}
	if flags.Changed("quiet") {
		out["output.quiet"] = g.quiet
	}
	if flags.Changed("no-conventions") {
		out["conventions"] = !g.noConventions
	}
	if flags.Changed("design-time") {
		out["design_time_build"] = g.designTime
	}
	if flags.Changed("parallelism") {
		out["parallelism"] = g.parallelism
	}
	if flags.Changed("rules") {
		out["rules"] = g.rules
	}
	return out
}

// session is the state shared by one command invocation
type session struct {
	config      *config.Config
	diagnostics *utils.DiagnosticSystem
	reporter    *DiagnosticReporter
	colors      bool
}

func (g *globalFlags) session(cmd *cobra.Command, searchDirs ...string) (*session, error) {
	cfg, err := config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: g.configFile,
		SearchDirs:     append(searchDirs, "."),
		Overrides:      g.overrides(cmd),
	})
	if err != nil {
		return nil, err
	}

	var ds *utils.DiagnosticSystem
	switch {
	case cfg.Output.Quiet:
		ds = utils.NewQuietDiagnostics()
	case cfg.Output.Verbose:
		ds = utils.NewVerboseDiagnostics()
	default:
		ds = utils.NewDiagnosticSystem(utils.DiagnosticWarn)
	}
	colors := ds.UseColors() && cmd.OutOrStdout() == io.Writer(os.Stdout)
	ds.WithWriters(cmd.ErrOrStderr(), cmd.ErrOrStderr())
	if cfg.Source != "" {
		ds.Verbose("Using configuration %s", cfg.Source)
	}

	return &session{
		config:      cfg,
		diagnostics: ds,
		reporter:    NewDiagnosticReporter(cmd.ErrOrStderr(), cfg.Output.Verbose),
		colors:      colors,
	}, nil
}

// NewRootCommand builds the svcplan command tree
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:     config.AppName,
		Version: version,
		Short:   "Plan dependency injection registrations for a program",
		Long: `svcplan resolves which types of a program are registered with a
dependency injection container, under which lifetime and service types,
from annotations on the types and from convention rules.

The program is read from a snapshot file or scanned from Go packages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default: svcplan.yaml in the working directory)")
	pf.StringVarP(&g.format, "format", "f", string(config.FormatText), "report format: text, json, yaml or toml")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output and detailed error reporting")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "only show errors")
	pf.BoolVar(&g.noConventions, "no-conventions", false, "ignore convention rules; annotations still apply")
	pf.BoolVar(&g.designTime, "design-time", false, "skip resolution and report an empty plan")
	pf.IntVar(&g.parallelism, "parallelism", 0, "maximum concurrent classifications (0 means GOMAXPROCS)")
	pf.StringVar(&g.rules, "rules", "", "extra convention rules file")

	root.AddCommand(
		newResolveCommand(g),
		newScanCommand(g),
		newCheckCommand(g),
		newEmitCommand(g),
		newCleanCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			NewDiagnosticReporter(root.ErrOrStderr(), false).ReportError(err)
		}
		return 1
	}
	return 0
}
