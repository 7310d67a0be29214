// Package logging configures log/slog for applocate.
//
// Without flags nothing is logged. --debug writes JSON logs to a rotating
// file under ~/.applocate/logs/, and --verbose writes human-readable source
// diagnostics to stderr. Both can be combined.
package logging
