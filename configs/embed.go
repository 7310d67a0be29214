// Package configs provides the embedded configuration files for applocate.
//
// Files are embedded at build time so every distribution carries them:
//   - aliases.yaml: the built-in application alias table used by the ranker
//   - user-config.example.yaml: the template written by `applocate config init`
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/applocate/config.yaml)
//  3. Environment variables (APPLOCATE_*)
//  4. Command-line flags
package configs

import _ "embed"

// AliasesYAML is the built-in alias table. User config entries under
// `aliases:` extend it.
//
//go:embed aliases.yaml
var AliasesYAML string

// UserConfigTemplate is the template for the user configuration file.
// Created by: `applocate config init` at ~/.config/applocate/config.yaml
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
