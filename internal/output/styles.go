package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette
const (
	ColorLime     = "154" // High confidence, headers
	ColorYellow   = "220" // Medium confidence, warnings
	ColorRed      = "196" // Low confidence, errors
	ColorGray     = "245" // Labels, provenance
	ColorDarkGray = "238" // Evidence and breakdown detail
)

// Confidence bands used for colouring scores.
const (
	HighConfidence   = 0.75
	MediumConfidence = 0.45
)

// Styles holds the styles used by the text renderer.
type Styles struct {
	Header  lipgloss.Style
	High    lipgloss.Style
	Medium  lipgloss.Style
	Low     lipgloss.Style
	Kind    lipgloss.Style
	Path    lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns coloured styles for terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		High:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Medium:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Low:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Kind:    lipgloss.NewStyle().Bold(true),
		Path:    lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for pipes and NO_COLOR.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		High:    plain,
		Medium:  plain,
		Low:     plain,
		Kind:    plain,
		Path:    plain,
		Label:   plain,
		Dim:     plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
	}
}

// Confidence returns the style for a score.
func (s Styles) Confidence(v float64) lipgloss.Style {
	switch {
	case v >= HighConfidence:
		return s.High
	case v >= MediumConfidence:
		return s.Medium
	default:
		return s.Low
	}
}

// StylesFor picks coloured styles when w is a terminal and NO_COLOR is unset.
func StylesFor(w io.Writer) Styles {
	if IsTTY(w) && !DetectNoColor() {
		return DefaultStyles()
	}
	return NoColorStyles()
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
