package cli

import (
	"context"
	"time"

	"github.com/toyz/svcplan/internal/config"
	"github.com/toyz/svcplan/internal/diagnostic"
	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/goscan"
	"github.com/toyz/svcplan/internal/loader"
	"github.com/toyz/svcplan/internal/models"
	"github.com/toyz/svcplan/internal/report"
	"github.com/toyz/svcplan/internal/resolver"
	"github.com/toyz/svcplan/internal/utils"
)

// Request names the program to resolve. A Snapshot path is loaded as is;
// otherwise the Go packages matching Patterns under Dir are scanned.
type Request struct {
	Snapshot string
	Dir      string
	Patterns []string
	// Rules is an extra rules file; it replaces Config.Rules when set
	Rules string
}

// Outcome is everything a run produced
type Outcome struct {
	Program  *models.Snapshot
	Source   string
	Rules    []models.ConventionRule
	Result   *resolver.Result
	Document *report.Document
	// Scan is set when the program was scanned from Go packages
	Scan *goscan.Result
}

// Runner coordinates loading, resolution and reporting
type Runner struct {
	config      *config.Config
	loader      *loader.Loader
	scanner     *goscan.Scanner
	resolver    *resolver.Resolver
	diagnostics *utils.DiagnosticSystem
}

// NewRunner creates a runner for cfg. diagnostics receives progress output.
func NewRunner(cfg *config.Config, diagnostics *utils.DiagnosticSystem) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if diagnostics == nil {
		diagnostics = utils.NewDiagnosticSystem(utils.DiagnosticSilent)
	}
	return &Runner{
		config:      cfg,
		loader:      loader.New(),
		scanner:     goscan.New(),
		resolver:    resolver.New(cfg.ResolverOptions()).WithCache(),
		diagnostics: diagnostics,
	}
}

// Config returns the runner's configuration
func (r *Runner) Config() *config.Config {
	return r.config
}

// Run executes one pass for req
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	startTime := time.Now()
	r.diagnostics.Verbose("Starting resolution at %s", startTime.Format("15:04:05"))

	out, err := r.load(ctx, req)
	if err != nil {
		return nil, err
	}

	rulesPath := req.Rules
	if rulesPath == "" {
		rulesPath = r.config.Rules
	}
	if rulesPath != "" {
		extra, err := loader.LoadRules(ctx, rulesPath, out.Program)
		if err != nil {
			return nil, err
		}
		r.diagnostics.PhaseItem("Read %d rules from %s", len(extra), rulesPath)
		out.Rules = append(out.Rules, extra...)
	}

	r.diagnostics.PhaseHeader("Resolving")
	res, err := r.resolver.Resolve(ctx, out.Program, out.Rules)
	if err != nil {
		return nil, err
	}
	out.Result = res
	out.Document = report.New(out.Program, res)

	r.diagnostics.PhaseItem("%d candidates classified", res.Stats.Candidates)
	r.diagnostics.PhaseItem("%d registrations planned", res.Stats.Entries)
	if len(res.Diagnostics) > 0 {
		r.diagnostics.Warn("%d warnings, %d errors reported",
			res.Diagnostics.Count(diagnostic.SeverityWarning), res.Diagnostics.Count(diagnostic.SeverityError))
	}

	r.diagnostics.Summary("Summary", map[string]interface{}{
		"Source":        out.Source,
		"Types":         res.Stats.Types,
		"Annotated":     res.Stats.Annotated,
		"By convention": res.Stats.Conventions,
		"Registrations": res.Stats.Entries,
		"Diagnostics":   len(res.Diagnostics),
		"Duration":      time.Since(startTime).Round(time.Millisecond),
	})
	return out, nil
}

func (r *Runner) load(ctx context.Context, req Request) (*Outcome, error) {
	if req.Snapshot != "" {
		r.diagnostics.PhaseHeader("Loading snapshot")
		res, err := r.loader.Load(ctx, req.Snapshot)
		if err != nil {
			return nil, err
		}
		r.diagnostics.PhaseItem("Loaded %d types from %s", res.Program.Len(), res.Source)
		return &Outcome{Program: res.Program, Source: res.Source, Rules: res.Rules}, nil
	}

	r.diagnostics.PhaseHeader("Scanning Go packages")
	res, err := r.scanner.Scan(ctx, goscan.Options{Dir: req.Dir, Patterns: req.Patterns})
	if err != nil {
		return nil, err
	}
	if len(res.Packages) == 0 {
		return nil, errors.NewValidationError("patterns", "at least one Go package", "none").
			WithSuggestion("run from inside a module or pass --dir")
	}
	r.diagnostics.PhaseItem("Found %d packages in module %s", len(res.Packages), res.Module.Path)
	r.diagnostics.Indent()
	for _, pkg := range res.Packages {
		r.diagnostics.List("%s", pkg)
	}
	r.diagnostics.Unindent()
	r.diagnostics.PhaseItem("Declared %d types", res.Program.Len())
	return &Outcome{Program: res.Program, Source: res.Module.Dir, Scan: res}, nil
}
