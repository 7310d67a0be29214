package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalex954/applocate-sub001/internal/config"
	"github.com/aalex954/applocate-sub001/internal/index"
	"github.com/aalex954/applocate-sub001/pkg/version"
)

// versionReport is the --json form: build info plus the on-disk locations
// this build reads and writes.
type versionReport struct {
	version.BuildInfo
	IndexSchema int    `json:"index_schema"`
	IndexPath   string `json:"index_path"`
	ConfigPath  string `json:"config_path"`
}

func newVersionCmd() *cobra.Command {
	var asJSON, short bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			switch {
			case short:
				_, err := fmt.Fprintln(w, version.Short())
				return err
			case asJSON:
				rep := versionReport{
					BuildInfo:   version.GetInfo(),
					IndexSchema: index.SchemaVersion,
					IndexPath:   index.DefaultPath(),
					ConfigPath:  config.GetUserConfigPath(),
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			_, err := fmt.Fprintf(w, "%s\nindex schema v%d\n", version.String(), index.SchemaVersion)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build info and paths as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	cmd.MarkFlagsMutuallyExclusive("json", "short")

	return cmd
}
