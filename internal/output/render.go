package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/locate"
	"github.com/aalex954/applocate-sub001/internal/rank"
)

// Format selects a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, json, or csv)", s)
	}
}

// Options controls what the renderers include.
type Options struct {
	Evidence  bool
	Breakdown bool
	Styles    Styles
}

// Render writes res to w in the given format.
func Render(w io.Writer, f Format, res locate.Result, opts Options) error {
	switch f {
	case FormatJSON:
		return RenderJSON(w, res, opts)
	case FormatCSV:
		return RenderCSV(w, res, opts)
	default:
		return RenderText(w, res, opts)
	}
}

// jsonHit is the stable JSON shape of a hit.
type jsonHit struct {
	Kind        hit.Kind          `json:"kind"`
	Scope       hit.Scope         `json:"scope"`
	Path        string            `json:"path"`
	Version     string            `json:"version,omitempty"`
	PackageType hit.PackageType   `json:"packageType"`
	Source      []string          `json:"source"`
	Confidence  float64           `json:"confidence"`
	Evidence    map[string]string `json:"evidence,omitempty"`
	Breakdown   *rank.Breakdown   `json:"breakdown,omitempty"`
}

func jsonHits(res locate.Result, opts Options) []jsonHit {
	out := make([]jsonHit, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = jsonHit{
			Kind:        h.Kind,
			Scope:       h.Scope,
			Path:        h.Path,
			Version:     h.Version,
			PackageType: h.PackageType,
			Source:      h.Source,
			Confidence:  rank.Round(h.Confidence),
		}
		if out[i].Source == nil {
			out[i].Source = []string{}
		}
		if opts.Evidence {
			out[i].Evidence = h.Evidence
		}
		if opts.Breakdown && i < len(res.Breakdowns) {
			b := res.Breakdowns[i]
			out[i].Breakdown = &b
		}
	}
	return out
}

// RenderJSON writes the hits as an indented JSON array.
func RenderJSON(w io.Writer, res locate.Result, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonHits(res, opts))
}

// RenderJSONLine writes one compact {"query", "hits"} object per line.
// Batch mode uses it so every input query yields one parseable line.
func RenderJSONLine(w io.Writer, res locate.Result, opts Options) error {
	return json.NewEncoder(w).Encode(struct {
		Query string    `json:"query"`
		Hits  []jsonHit `json:"hits"`
	}{res.Query, jsonHits(res, opts)})
}

// RenderCSV writes a header row and one row per hit.
func RenderCSV(w io.Writer, res locate.Result, opts Options) error {
	cw := csv.NewWriter(w)
	header := []string{"Kind", "Scope", "Path", "Version", "PackageType", "Confidence", "Source"}
	if opts.Evidence {
		header = append(header, "Evidence")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, h := range res.Hits {
		row := []string{
			h.Kind.String(),
			h.Scope.String(),
			h.Path,
			h.Version,
			h.PackageType.String(),
			strconv.FormatFloat(rank.Round(h.Confidence), 'f', rank.Precision, 64),
			strings.Join(h.Source, "|"),
		}
		if opts.Evidence {
			row = append(row, evidenceString(h.Evidence, ";"))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderText writes one aligned line per hit, followed by indented
// evidence and breakdown lines when requested.
func RenderText(w io.Writer, res locate.Result, opts Options) error {
	s := opts.Styles
	for i, h := range res.Hits {
		conf := fmt.Sprintf("%.3f", rank.Round(h.Confidence))
		line := s.Confidence(h.Confidence).Render(conf) + "  " +
			pad(s.Kind.Render(h.Kind.String()), h.Kind.String(), 10) + "  " +
			pad(h.Scope.String(), h.Scope.String(), 7) + "  " +
			s.Path.Render(h.Path)
		var meta []string
		if h.Version != "" {
			meta = append(meta, "v"+h.Version)
		}
		if h.PackageType != hit.PackageUnknown {
			meta = append(meta, h.PackageType.String())
		}
		if len(h.Source) > 0 {
			meta = append(meta, "["+strings.Join(h.Source, ", ")+"]")
		}
		if len(meta) > 0 {
			line += "  " + s.Label.Render(strings.Join(meta, " "))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		if opts.Evidence {
			for _, k := range slices.Sorted(maps.Keys(h.Evidence)) {
				if _, err := fmt.Fprintln(w, s.Dim.Render(fmt.Sprintf("       %s = %s", k, h.Evidence[k]))); err != nil {
					return err
				}
			}
		}
		if opts.Breakdown && i < len(res.Breakdowns) {
			for _, c := range res.Breakdowns[i].Contributions {
				if c.Value == 0 {
					continue
				}
				if _, err := fmt.Fprintln(w, s.Dim.Render(fmt.Sprintf("       %-26s %+.3f", c.Name, c.Value))); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RenderReport writes per-source diagnostics, used with --verbose.
func RenderReport(w io.Writer, r locate.Report, s Styles) {
	_, _ = fmt.Fprintf(w, "%s run %s query %q: %d raw hits in %s\n",
		s.Header.Render("applocate"), r.RunID, r.Query, r.Total(), r.Elapsed.Round(time.Millisecond))
	for _, src := range r.Sources {
		status := s.Success.Render("ok")
		switch {
		case src.TimedOut:
			status = s.Warning.Render("timeout")
		case src.Err != nil:
			status = s.Error.Render("failed")
		}
		line := fmt.Sprintf("  %-12s %-8s %4d hits  %s", src.Name, status, src.Count, src.Duration.Round(time.Millisecond))
		if src.Err != nil {
			line += "  " + s.Dim.Render(src.Err.Error())
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func evidenceString(ev map[string]string, sep string) string {
	parts := make([]string, 0, len(ev))
	for _, k := range slices.Sorted(maps.Keys(ev)) {
		parts = append(parts, k+"="+ev[k])
	}
	return strings.Join(parts, sep)
}

// pad right-pads a rendered cell to width using the length of its plain text.
func pad(rendered, plain string, width int) string {
	if n := width - len(plain); n > 0 {
		return rendered + strings.Repeat(" ", n)
	}
	return rendered
}
