package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/config"
	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/index"
	"github.com/aalex954/applocate-sub001/internal/output"
	"github.com/aalex954/applocate-sub001/internal/source"
	"github.com/aalex954/applocate-sub001/internal/watcher"
)

type watchFlags struct {
	debounce time.Duration
	json     bool
	all      bool
	dirs     []string
	fixture  string
}

func (a *app) newWatchCmd() *cobra.Command {
	wf := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch <query...>",
		Short: "Re-resolve a query whenever software is installed or removed",
		Long: `Resolve the query, then watch the install and shortcut directories and
resolve it again after each burst of changes. Runs until interrupted.

Directories are watched one level deep. Those that cannot be watched
natively are polled.`,
		Example: `  applocate watch vscode
  applocate watch "7-zip" --json --debounce 5s
  applocate watch mytool --dir D:\Tools`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("debounce") {
				wf.debounce = a.config().DebounceDuration()
			}
			return a.runWatch(cmd, joinArgs(args), wf)
		},
	}

	cmd.Flags().DurationVar(&wf.debounce, "debounce", 2*time.Second, "Quiet period before re-resolving")
	cmd.Flags().BoolVar(&wf.json, "json", false, "Output each resolution as a JSON line")
	cmd.Flags().BoolVar(&wf.all, "all", false, "Print every hit instead of the best per kind")
	cmd.Flags().StringSliceVar(&wf.dirs, "dir", nil, "Additional directory to watch (repeatable)")
	cmd.Flags().StringVar(&wf.fixture, "fixture", "", "Replace the built-in sources with a YAML fixture")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, q string, wf *watchFlags) error {
	cfg := a.config()
	lf := &locateFlags{
		json:          wf.json,
		all:           wf.all,
		timeout:       cfg.TimeoutDuration(),
		minConfidence: cfg.Search.MinConfidence,
		limit:         cfg.Search.Limit,
		strict:        cfg.Search.Strict,
		noIndex:       cfg.Index.Disabled,
		indexPath:     cfg.Index.Path,
		fixture:       wf.fixture,
	}
	svc, err := buildService(cfg, lf)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	status := output.New(cmd.ErrOrStderr())

	resolve := func(refresh bool) error {
		opts := lf.options()
		opts.Refresh = refresh
		res, err := svc.Locate(ctx, q, opts)
		if err != nil {
			return err
		}
		svc.Flush()
		if wf.json {
			err = output.RenderJSONLine(cmd.OutOrStdout(), res, renderOptions(cmd.OutOrStdout(), lf))
		} else {
			err = output.RenderText(cmd.OutOrStdout(), res, renderOptions(cmd.OutOrStdout(), lf))
		}
		if err != nil {
			return alerrors.InternalError("failed to write output", err)
		}
		if len(res.Hits) == 0 {
			status.Warningf("No installation found for %q", res.Query)
		}
		return nil
	}

	if err := resolve(false); err != nil {
		return err
	}

	w := watcher.New(watcher.Options{DebounceWindow: wf.debounce})
	defer func() { _ = w.Stop() }()

	dirs := watchDirs(cfg, wf)
	started := make(chan error, 1)
	go func() { started <- w.Start(ctx, dirs) }()
	status.Statusf("", "Watching %d directories for changes (Ctrl+C to stop)", len(dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-started:
			switch {
			case errors.Is(err, watcher.ErrNothingToWatch):
				return alerrors.ValidationError("none of the watched directories exist", err).
					WithSuggestion("Pass an existing directory with --dir")
			case err == nil, errors.Is(err, context.Canceled):
				return nil
			default:
				return alerrors.InternalError("watcher stopped", err)
			}
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			slog.Info("watch_change",
				slog.String("query", q),
				slog.Int("changes", len(batch)),
				slog.String("first", batch[0].Path))
			status.Statusf("", "%d change(s) under %s, re-resolving", len(batch), batch[0].Dir)
			if err := resolve(true); err != nil {
				return err
			}
		case werr, ok := <-w.Errors():
			if ok {
				slog.Warn("watch_error", slog.String("error", werr.Error()))
			}
		}
	}
}

// watchDirs returns the directories whose changes can alter lookups: the
// index fingerprint directories, the install roots and any configured or
// flagged extra roots. A fixture run only watches the flagged directories.
func watchDirs(cfg *config.Config, wf *watchFlags) []string {
	if wf.fixture != "" {
		return wf.dirs
	}
	dirs := index.FingerprintDirs()
	for _, r := range source.DefaultRoots(os.LookupEnv) {
		if r.Kind == hit.KindInstallDir && r.Path != "" {
			dirs = append(dirs, r.Path)
		}
	}
	for _, r := range cfg.Sources.Roots {
		dirs = append(dirs, r.Path)
	}
	return append(dirs, wf.dirs...)
}

