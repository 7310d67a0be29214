package source

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// packageMarkers maps lower-case path fragments to the package manager that
// owns paths containing them. Order matters: the first match wins.
var packageMarkers = []struct {
	fragment string
	pkg      hit.PackageType
}{
	{`\scoop\apps\`, hit.PackageScoop},
	{`/scoop/apps/`, hit.PackageScoop},
	{`\chocolatey\`, hit.PackageChocolatey},
	{`\winget\packages\`, hit.PackageWinget},
	{`\windowsapps\`, hit.PackageMSIX},
	{`\squirreltemp\`, hit.PackageSquirrel},
	{`\apps\2.0\`, hit.PackageClickOnce},
}

// inferPackageType guesses the package type from well-known path fragments.
func inferPackageType(p string) hit.PackageType {
	lower := strings.ToLower(p)
	for _, m := range packageMarkers {
		if strings.Contains(lower, m.fragment) {
			return m.pkg
		}
	}
	return hit.PackageUnknown
}

// scopeFor classifies p as per-user when it lives under one of userRoots.
func scopeFor(p string, userRoots []string) hit.Scope {
	lower := strings.ToLower(p)
	for _, root := range userRoots {
		if root == "" {
			continue
		}
		r := strings.ToLower(hit.NormalizePath(root))
		if lower == r || strings.HasPrefix(lower, r+`\`) || strings.HasPrefix(lower, r+"/") {
			return hit.ScopeUser
		}
	}
	return hit.ScopeMachine
}

// defaultUserRoots returns the directories whose descendants are per-user.
func defaultUserRoots() []string {
	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, home)
	}
	if v := os.Getenv("USERPROFILE"); v != "" {
		roots = append(roots, v)
	}
	return roots
}

var executableExts = map[string]bool{".exe": true, ".cmd": true, ".bat": true, ".com": true}

// isExecutable reports whether a directory entry names a launchable file.
func isExecutable(e os.DirEntry) bool {
	if e.IsDir() {
		return false
	}
	if executableExts[strings.ToLower(filepath.Ext(e.Name()))] {
		return true
	}
	if runtime.GOOS == "windows" {
		return false
	}
	info, err := e.Info()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
