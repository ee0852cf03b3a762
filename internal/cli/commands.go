package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/toyz/svcplan/internal/emit"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/report"
	"github.com/toyz/svcplan/internal/utils"
)

func newResolveCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <snapshot>",
		Short: "Resolve the registration plan of a snapshot file",
		Long: `Load a program snapshot (YAML) and print its registration plan.
Rules in the snapshot and in --rules are applied unless --no-conventions is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, Request{Snapshot: args[0]}, true)
		},
	}
}

func newScanCommand(g *globalFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "scan [patterns...]",
		Short: "Scan Go packages and resolve their registration plan",
		Long: `Load the Go packages matching patterns (default ./...) in the module
containing --dir and print their registration plan. Types, constructors and
parameters are annotated with //di: comments.`,
		Example: `  svcplan scan
  svcplan scan --dir ./services ./store/...
  svcplan scan --rules rules.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, Request{Dir: dir, Patterns: args}, true, dir)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "directory inside the module to scan")
	return cmd
}

func newCheckCommand(g *globalFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "check [snapshot]",
		Short: "Report diagnostics without printing the plan",
		Long: `Resolve a snapshot, or the Go packages under --dir when no snapshot is
given, and report diagnostics on stderr. Exits non-zero when any diagnostic
is an error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := Request{Dir: dir}
			if len(args) == 1 {
				req.Snapshot = args[0]
			}
			return g.run(cmd, req, false, dir)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "directory inside the module to scan")
	return cmd
}

func newEmitCommand(g *globalFlags) *cobra.Command {
	var dir, out, pkg, module string
	cmd := &cobra.Command{
		Use:   "emit [patterns...]",
		Short: "Generate fx registration code for scanned Go packages",
		Long: `Scan the Go packages matching patterns under --dir, resolve their
registration plan and render it as a go.uber.org/fx module. The file is
written to --out, or to stdout when --out is empty. Nothing is written when
any diagnostic is an error.`,
		Example: `  svcplan emit --out internal/services/services_gen.go
  svcplan emit --dir ./app --package wiring ./store/... ./web/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.emit(cmd, Request{Dir: dir, Patterns: args}, out, emit.Options{Package: pkg, Module: module})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "directory inside the module to scan")
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write (default: stdout)")
	cmd.Flags().StringVar(&pkg, "package", "", "package clause (default: the --out directory name, or services)")
	cmd.Flags().StringVar(&module, "module", "", "fx module name (default: the package name)")
	return cmd
}

func newCleanCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "clean [directories...]",
		Short: "Remove files generated by emit",
		Long: `Remove the Go files generated by svcplan from the given directories
(default ./...). A directory ending in /... is cleaned recursively. Files are
recognized by their generated-code header.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"./..."}
			}
			cleaner := NewCleaner()
			if dryRun {
				files, err := cleaner.Find(args)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}
			removed, err := cleaner.CleanGeneratedFiles(args)
			for _, f := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", f)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "list the files without removing them")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the svcplan version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// run resolves req and either prints the plan or only its diagnostics
func (g *globalFlags) run(cmd *cobra.Command, req Request, printPlan bool, searchDirs ...string) error {
	s, err := g.session(cmd, searchDirs...)
	if err != nil {
		return err
	}

	out, err := NewRunner(s.config, s.diagnostics).Run(cmd.Context(), req)
	if err != nil {
		s.reporter.ReportError(err)
		return errReported
	}

	if printPlan {
		if err := report.Render(cmd.OutOrStdout(), s.config.Output.Format, out.Document, s.colors); err != nil {
			return err
		}
		if out.Result.Diagnostics.HasErrors() {
			return errReported
		}
		return nil
	}

	s.reporter.WithColors(s.diagnostics.UseColors()).ReportDiagnostics(out.Result.Diagnostics)
	if out.Result.Diagnostics.HasErrors() {
		return errReported
	}
	s.diagnostics.Success("%d registrations, no errors", out.Result.Stats.Entries)
	return nil
}

// emit resolves req and writes the plan as Go source
func (g *globalFlags) emit(cmd *cobra.Command, req Request, outPath string, opts emit.Options) error {
	s, err := g.session(cmd, req.Dir)
	if err != nil {
		return err
	}

	out, err := NewRunner(s.config, s.diagnostics).Run(cmd.Context(), req)
	if err != nil {
		s.reporter.ReportError(err)
		return errReported
	}
	s.reporter.WithColors(s.diagnostics.UseColors()).ReportDiagnostics(out.Result.Diagnostics)
	if out.Result.Diagnostics.HasErrors() {
		return errReported
	}

	if outPath != "" {
		dir, err := filepath.Abs(filepath.Dir(outPath))
		if err != nil {
			return errors.WrapFileSystemError("resolve", outPath, err)
		}
		if path, ok := out.Scan.Module.ImportPath(dir); ok {
			opts.ImportPath = path
		}
		if opts.Package == "" {
			opts.Package = emit.PackageName(dir)
		}
	}

	s.diagnostics.PhaseHeader("Emitting")
	src, err := emit.Generate(out.Result.Plan, out.Scan.Symbols, opts)
	if err != nil {
		s.reporter.ReportError(err)
		return errReported
	}
	if outPath == "" {
		_, err := cmd.OutOrStdout().Write(src)
		return err
	}
	if err := utils.WriteGoFile(outPath, src); err != nil {
		return err
	}
	s.diagnostics.Success("Wrote %d registrations to %s", out.Result.Stats.Entries, outPath)
	return nil
}
