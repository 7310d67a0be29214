package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/config"
	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/index"
	"github.com/aalex954/applocate-sub001/internal/locate"
	"github.com/aalex954/applocate-sub001/internal/output"
	"github.com/aalex954/applocate-sub001/internal/rank"
	"github.com/aalex954/applocate-sub001/internal/source"
)

// locateFlags holds the flags of the root lookup command.
type locateFlags struct {
	json bool
	csv  bool
	text bool

	limit         int
	minConfidence float64
	user          bool
	machine       bool
	exe           bool
	installDir    bool
	configKind    bool
	data          bool
	all           bool

	strict    bool
	evidence  bool
	breakdown bool
	timeout   time.Duration

	refresh   bool
	noIndex   bool
	indexPath string
	fixture   string
	stdin     bool
}

func (lf *locateFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&lf.json, "json", false, "Output as a JSON array")
	f.BoolVar(&lf.csv, "csv", false, "Output as CSV")
	f.BoolVar(&lf.text, "text", false, "Output as aligned text (default)")

	f.IntVar(&lf.limit, "limit", 0, "Maximum number of hits to print (0 = no cap)")
	f.Float64Var(&lf.minConfidence, "confidence-min", 0, "Drop hits scoring below this (0.0-1.0)")
	f.BoolVar(&lf.user, "user", false, "Only per-user installs")
	f.BoolVar(&lf.machine, "machine", false, "Only machine-wide installs")
	f.BoolVar(&lf.exe, "exe", false, "Only executables")
	f.BoolVar(&lf.installDir, "install-dir", false, "Only install directories")
	f.BoolVar(&lf.configKind, "config", false, "Only configuration directories")
	f.BoolVar(&lf.data, "data", false, "Only data directories")
	f.BoolVar(&lf.all, "all", false, "Print every hit instead of the best per kind")

	f.BoolVar(&lf.strict, "strict", false, "Disable alias and fuzzy matching")
	f.BoolVar(&lf.evidence, "evidence", false, "Include the evidence behind each hit")
	f.BoolVar(&lf.breakdown, "score-breakdown", false, "Explain each confidence score")
	f.DurationVar(&lf.timeout, "timeout", source.DefaultTimeout, "Per-source deadline")

	f.BoolVar(&lf.refresh, "refresh-index", false, "Ignore cached results and re-resolve")
	f.BoolVar(&lf.noIndex, "no-index", false, "Neither read nor write the on-disk index")
	f.StringVar(&lf.indexPath, "index-path", "", "Index file location")
	f.StringVar(&lf.fixture, "fixture", "", "Replace the built-in sources with a YAML fixture")
	f.BoolVar(&lf.stdin, "stdin", false, "Read one query per line from standard input")
}

// validate rejects contradictory or out-of-range flags.
func (lf *locateFlags) validate(args []string) error {
	formats := 0
	for _, set := range []bool{lf.json, lf.csv, lf.text} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return alerrors.New(alerrors.ErrCodeConflictingFlags, "--json, --csv and --text are mutually exclusive", nil)
	}
	if lf.user && lf.machine {
		return alerrors.New(alerrors.ErrCodeConflictingFlags, "--user and --machine are mutually exclusive", nil)
	}
	if lf.stdin && len(args) > 0 {
		return alerrors.New(alerrors.ErrCodeConflictingFlags, "--stdin does not take a query argument", nil)
	}
	if lf.minConfidence < 0 || lf.minConfidence > 1 {
		return alerrors.ValidationError(fmt.Sprintf("--confidence-min must be between 0 and 1, got %g", lf.minConfidence), nil)
	}
	if lf.limit < 0 {
		return alerrors.ValidationError(fmt.Sprintf("--limit must be non-negative, got %d", lf.limit), nil)
	}
	if lf.timeout <= 0 {
		return alerrors.ValidationError(fmt.Sprintf("--timeout must be positive, got %s", lf.timeout), nil)
	}
	return nil
}

func (lf *locateFlags) format() output.Format {
	switch {
	case lf.json:
		return output.FormatJSON
	case lf.csv:
		return output.FormatCSV
	default:
		return output.FormatText
	}
}

func (lf *locateFlags) kinds() []hit.Kind {
	var kinds []hit.Kind
	if lf.installDir {
		kinds = append(kinds, hit.KindInstallDir)
	}
	if lf.exe {
		kinds = append(kinds, hit.KindExe)
	}
	if lf.configKind {
		kinds = append(kinds, hit.KindConfig)
	}
	if lf.data {
		kinds = append(kinds, hit.KindData)
	}
	return kinds
}

// applyConfig fills flags the user did not set from the configuration.
func (lf *locateFlags) applyConfig(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if !changed("timeout") {
		lf.timeout = cfg.TimeoutDuration()
	}
	if !changed("confidence-min") {
		lf.minConfidence = cfg.Search.MinConfidence
	}
	if !changed("limit") {
		lf.limit = cfg.Search.Limit
	}
	if !changed("strict") {
		lf.strict = cfg.Search.Strict
	}
	if !changed("no-index") {
		lf.noIndex = cfg.Index.Disabled
	}
	if !changed("index-path") {
		lf.indexPath = cfg.Index.Path
	}
}

func (lf *locateFlags) options() locate.Options {
	return locate.Options{
		Timeout:         lf.timeout,
		Strict:          lf.strict,
		IncludeEvidence: lf.evidence,
		ScoreBreakdown:  lf.breakdown,
		Refresh:         lf.refresh,
		NoIndex:         lf.noIndex,
		Filter: locate.Filter{
			MinConfidence: lf.minConfidence,
			UserOnly:      lf.user,
			MachineOnly:   lf.machine,
			Kinds:         lf.kinds(),
			All:           lf.all,
			Limit:         lf.limit,
		},
	}
}

func (a *app) runLocate(cmd *cobra.Command, lf *locateFlags, args []string) error {
	cfg := a.config()
	lf.applyConfig(cmd, cfg)
	if err := lf.validate(args); err != nil {
		return err
	}

	svc, err := buildService(cfg, lf)
	if err != nil {
		return err
	}
	defer svc.Flush()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if lf.stdin {
		return a.runBatch(ctx, cmd, locate.NewCachedService(svc, 0), lf)
	}

	res, err := svc.Locate(ctx, joinArgs(args), lf.options())
	if err != nil {
		return err
	}
	if err := a.render(cmd, lf, lf.format(), res); err != nil {
		return alerrors.InternalError("failed to write output", err)
	}
	if len(res.Hits) == 0 {
		return alerrors.NoResults(res.Query)
	}
	return nil
}

// runBatch resolves one query per input line. Blank lines are skipped and
// per-query errors are reported without stopping the batch.
func (a *app) runBatch(ctx context.Context, cmd *cobra.Command, loc locate.Locator, lf *locateFlags) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	opts := lf.options()
	found := false
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, err := loc.Locate(ctx, line, opts)
		if err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), alerrors.FormatForCLI(err))
			continue
		}
		found = found || len(res.Hits) > 0

		format := lf.format()
		if format == output.FormatJSON {
			err = output.RenderJSONLine(cmd.OutOrStdout(), res, renderOptions(cmd.OutOrStdout(), lf))
		} else {
			if format == output.FormatText {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", res.Query)
			}
			err = a.render(cmd, lf, format, res)
		}
		if err != nil {
			return alerrors.InternalError("failed to write output", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return alerrors.New(alerrors.ErrCodeInvalidInput, "failed to read queries from stdin", err)
	}
	if !found {
		return alerrors.New(alerrors.ErrCodeNoResults, "no query produced results", nil)
	}
	return nil
}

func (a *app) render(cmd *cobra.Command, lf *locateFlags, format output.Format, res locate.Result) error {
	if a.verbose {
		output.RenderReport(cmd.ErrOrStderr(), res.Report, output.StylesFor(cmd.ErrOrStderr()))
		if res.FromCache {
			fmt.Fprintln(cmd.ErrOrStderr(), "  served from index")
		}
	}
	return output.Render(cmd.OutOrStdout(), format, res, renderOptions(cmd.OutOrStdout(), lf))
}

func renderOptions(w io.Writer, lf *locateFlags) output.Options {
	return output.Options{
		Evidence:  lf.evidence,
		Breakdown: lf.breakdown,
		Styles:    output.StylesFor(w),
	}
}

// buildService assembles the lookup pipeline from configuration and flags.
func buildService(cfg *config.Config, lf *locateFlags) (*locate.Service, error) {
	reg, err := buildRegistry(cfg, lf.fixture)
	if err != nil {
		return nil, err
	}

	opts := []locate.ServiceOption{
		locate.WithAliases(rank.DefaultAliases().With(cfg.Aliases)),
		locate.WithEvidenceLimit(cfg.Evidence.MaxValues),
	}
	// Fixture runs only touch an index the caller names explicitly.
	useIndex := !lf.noIndex && (lf.fixture == "" || lf.indexPath != "")
	if useIndex {
		opts = append(opts, locate.WithIndex(openIndex(cfg, lf.indexPath)))
	}

	orch := locate.NewOrchestrator(reg, locate.WithMaxConcurrency(cfg.Search.MaxConcurrency))
	return locate.NewService(orch, opts...), nil
}

func openIndex(cfg *config.Config, path string) *index.Store {
	if path == "" {
		path = index.DefaultPath()
	}
	return index.NewStore(path,
		index.WithMaxAge(cfg.MaxAgeDuration()),
		index.WithMaxRecords(cfg.Index.MaxRecords))
}

// buildRegistry returns the fixture sources when a fixture is given and
// the enabled built-in sources otherwise.
func buildRegistry(cfg *config.Config, fixture string) (*source.Registry, error) {
	reg := source.NewRegistry()
	if fixture != "" {
		statics, err := source.LoadFixture(fixture)
		if err != nil {
			return nil, alerrors.New(alerrors.ErrCodeFixtureRead, "failed to load fixture", err).
				WithDetail("path", fixture)
		}
		for _, s := range statics {
			if err := reg.Register(s); err != nil {
				return nil, alerrors.New(alerrors.ErrCodeFixtureRead, "invalid fixture", err).
					WithDetail("path", fixture)
			}
		}
		return reg, nil
	}

	known := source.NewKnownDirs()
	for _, r := range cfg.Sources.Roots {
		// Validated by config.Validate.
		kind, _ := hit.ParseKind(r.Kind)
		scope, _ := hit.ParseScope(r.Scope)
		known.Roots = append(known.Roots, source.Root{Path: r.Path, Kind: kind, Scope: scope})
	}

	for _, s := range []source.Source{source.NewPathDirs(), known} {
		if cfg.SourceDisabled(s.Name()) {
			slog.Debug("source_disabled", slog.String("source", s.Name()))
			continue
		}
		if err := reg.Register(s); err != nil {
			return nil, alerrors.InternalError("failed to register source", err)
		}
	}
	return reg, nil
}
