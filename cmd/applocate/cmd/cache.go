package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/index"
	"github.com/aalex954/applocate-sub001/internal/output"
	"github.com/aalex954/applocate-sub001/internal/query"
)

func (a *app) newCacheCmd() *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the on-disk lookup index",
		Long: `The index remembers resolved queries so repeated lookups return instantly.
It is invalidated automatically when software is installed or removed and
at the start of every day.`,
		Example: `  applocate cache info
  applocate cache remove vscode
  applocate cache clear`,
	}
	cmd.PersistentFlags().StringVar(&indexPath, "index-path", "", "Index file location")

	store := func() *index.Store {
		path := indexPath
		if path == "" {
			path = a.config().Index.Path
		}
		return openIndex(a.config(), path)
	}

	cmd.AddCommand(newCacheInfoCmd(store))
	cmd.AddCommand(newCacheRemoveCmd(store))
	cmd.AddCommand(newCacheClearCmd(store))
	return cmd
}

// cacheInfo is the JSON shape of `cache info`.
type cacheInfo struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Bytes   int64     `json:"bytes"`
	Records int       `json:"records"`
	Entries int       `json:"entries"`
	Oldest  time.Time `json:"oldest,omitzero"`
	Newest  time.Time `json:"newest,omitzero"`
	MaxAge  string    `json:"maxAge"`
}

func newCacheInfoCmd(store func() *index.Store) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show index location and contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := store()
			stats := index.Summarize(s.Load())
			info := cacheInfo{
				Path:    s.Path(),
				Records: stats.Records,
				Entries: stats.Entries,
				Oldest:  stats.Oldest,
				Newest:  stats.Newest,
				MaxAge:  s.MaxAge().String(),
			}
			if fi, err := os.Stat(s.Path()); err == nil {
				info.Exists = true
				info.Bytes = fi.Size()
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			out := output.New(cmd.OutOrStdout())
			out.KeyValue("Path", info.Path)
			if !info.Exists {
				out.KeyValue("Status", "not created yet")
				return nil
			}
			out.KeyValue("Size", formatBytes(info.Bytes))
			out.KeyValue("Queries", info.Records)
			out.KeyValue("Hits", info.Entries)
			out.KeyValue("Max age", info.MaxAge)
			if !info.Oldest.IsZero() {
				out.KeyValue("Oldest", info.Oldest.Local().Format(time.DateTime))
				out.KeyValue("Newest", info.Newest.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCacheRemoveCmd(store func() *index.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <query...>",
		Short: "Forget one cached query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := query.Normalize(joinArgs(args))
			s := store()
			f := s.Load()
			out := output.New(cmd.OutOrStdout())
			if !s.Remove(f, q) {
				out.Warningf("%q is not cached", q)
				return nil
			}
			if err := s.Save(f); err != nil {
				return alerrors.Wrap(alerrors.ErrCodeIndexWrite, err).WithDetail("path", s.Path())
			}
			out.Successf("Removed %q from the index", q)
			return nil
		},
	}
}

func newCacheClearCmd(store func() *index.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the index file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := store()
			if err := s.Clear(); err != nil {
				return alerrors.Wrap(alerrors.ErrCodeIndexWrite, err).WithDetail("path", s.Path())
			}
			output.New(cmd.OutOrStdout()).Successf("Cleared %s", s.Path())
			return nil
		},
	}
}
