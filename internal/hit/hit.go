// Package hit defines the unit of discovery shared by every stage of the
// lookup pipeline: sources produce hits, the merger folds them, the ranker
// scores them and the index persists them.
package hit

import (
	"fmt"
	"strings"
)

// Kind is the category of filesystem location a hit describes.
type Kind int

const (
	// KindInstallDir is an application's installation directory.
	KindInstallDir Kind = iota
	// KindExe is an application's main executable.
	KindExe
	// KindConfig is a configuration root.
	KindConfig
	// KindData is a data root.
	KindData
)

var kindNames = [...]string{"InstallDir", "Exe", "Config", "Data"}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindInstallDir, KindExe, KindConfig, KindData}
}

// Scope tells whether an installation is per-user or machine-wide.
type Scope int

const (
	// ScopeUser is a per-user installation.
	ScopeUser Scope = iota
	// ScopeMachine is a machine-wide installation.
	ScopeMachine
)

// String returns the canonical name of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "User"
	case ScopeMachine:
		return "Machine"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	if s != ScopeUser && s != ScopeMachine {
		return nil, fmt.Errorf("invalid scope %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseScope parses a scope name case-insensitively.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "user":
		return ScopeUser, nil
	case "machine":
		return ScopeMachine, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", s)
	}
}

// PackageType is the packaging technology an application was installed with.
type PackageType int

const (
	PackageUnknown PackageType = iota
	PackageMSI
	PackageMSIX
	PackageStore
	PackageEXE
	PackagePortable
	PackageClickOnce
	PackageSquirrel
	PackageScoop
	PackageChocolatey
	PackageWinget
)

var packageNames = map[PackageType]string{
	PackageUnknown:    "Unknown",
	PackageMSI:        "MSI",
	PackageMSIX:       "MSIX",
	PackageStore:      "Store",
	PackageEXE:        "EXE",
	PackagePortable:   "Portable",
	PackageClickOnce:  "ClickOnce",
	PackageSquirrel:   "Squirrel",
	PackageScoop:      "Scoop",
	PackageChocolatey: "Chocolatey",
	PackageWinget:     "Winget",
}

// String returns the canonical name of the package type.
func (p PackageType) String() string {
	if name, ok := packageNames[p]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p PackageType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unrecognised names decode to PackageUnknown.
func (p *PackageType) UnmarshalText(text []byte) error {
	*p = ParsePackageType(string(text))
	return nil
}

// ParsePackageType parses a package type name case-insensitively.
func ParsePackageType(s string) PackageType {
	for pt, name := range packageNames {
		if strings.EqualFold(name, s) {
			return pt
		}
	}
	return PackageUnknown
}

// Well-known evidence keys understood by the ranker.
const (
	EvidenceDisplayName     = "DisplayName"
	EvidenceShortcut        = "Shortcut"
	EvidenceProcess         = "Process"
	EvidenceInstallLocation = "InstallLocation"
	EvidenceDisplayIcon     = "DisplayIcon"
	EvidenceAliasMatched    = "AliasMatched"
	EvidenceBrokenShortcut  = "BrokenShortcut"
	EvidenceExists          = "Exists"
	EvidenceManifest        = "Manifest"
	EvidencePackageID       = "PackageId"
	EvidencePathEntry       = "PathEntry"
	EvidenceRegistryKey     = "RegistryKey"
)

// Hit is one discovered filesystem location.
type Hit struct {
	Kind        Kind
	Scope       Scope
	Path        string
	Version     string
	PackageType PackageType

	// Source lists the discovery mechanisms that reported this path.
	// Membership is case-insensitive.
	Source []string

	// Confidence is assigned by the ranker only; zero before ranking.
	Confidence float64

	// Evidence is nil unless evidence collection was requested.
	Evidence map[string]string
}

// Identity is the deduplication key of a hit.
type Identity struct {
	Kind  Kind
	Scope Scope
	Path  string // lower-cased normalized path
}

// Key returns the identity of h.
func (h Hit) Key() Identity {
	return Identity{Kind: h.Kind, Scope: h.Scope, Path: strings.ToLower(h.Path)}
}

// String renders the identity for logs.
func (id Identity) String() string {
	return id.Kind.String() + "|" + id.Scope.String() + "|" + id.Path
}

// Clone returns a deep copy of h.
func (h Hit) Clone() Hit {
	out := h
	if h.Source != nil {
		out.Source = append([]string(nil), h.Source...)
	}
	if h.Evidence != nil {
		out.Evidence = make(map[string]string, len(h.Evidence))
		for k, v := range h.Evidence {
			out.Evidence[k] = v
		}
	}
	return out
}

// HasSource reports whether name is in the provenance set (case-insensitive).
func (h Hit) HasSource(name string) bool {
	for _, s := range h.Source {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// EvidenceValue returns the evidence value for key and whether it is present
// and non-empty.
func (h Hit) EvidenceValue(key string) (string, bool) {
	if h.Evidence == nil {
		return "", false
	}
	v, ok := h.Evidence[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// UnionSources returns a followed by every name in b not already present,
// compared case-insensitively. The first spelling seen wins.
func UnionSources(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
