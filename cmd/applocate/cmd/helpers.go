package cmd

import (
	"fmt"
	"strings"
)

// joinArgs rebuilds a multi-word query from positional arguments.
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(n int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)
	switch {
	case n >= MB:
		return fmt.Sprintf("%.1f MB", float64(n)/MB)
	case n >= KB:
		return fmt.Sprintf("%.1f KB", float64(n)/KB)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
