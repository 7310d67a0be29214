package hit

import (
	"os"
	"path"
	"strings"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(name string) (string, bool)

// NormalizePath expands environment references and normalizes separators
// using the process environment. See NormalizePathWith.
func NormalizePath(p string) string {
	return NormalizePathWith(p, os.LookupEnv)
}

// NormalizePathWith returns p expanded and normalized:
//   - surrounding whitespace and quotes are removed
//   - %VAR% references are expanded; $VAR and a leading ~ are expanded for
//     POSIX-style paths only ($ is a legal Windows path character)
//   - Windows-style paths (drive letter, UNC prefix or any backslash) use
//     backslashes throughout, other paths are cleaned with forward slashes
//   - there is no trailing separator except on a root ("C:\", "/")
//
// Unknown variables are left untouched. An empty input yields "".
func NormalizePathWith(p string, lookup LookupFunc) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"`)
	if p == "" {
		return ""
	}

	p = expandPercent(p, lookup)

	if IsWindowsPath(p) {
		return normalizeWindows(p)
	}

	if strings.HasPrefix(p, "~") {
		if home, ok := lookup("HOME"); ok && home != "" {
			p = home + p[1:]
		}
	}
	p = os.Expand(p, func(name string) string {
		if v, ok := lookup(name); ok {
			return v
		}
		return "$" + name
	})
	p = path.Clean(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// IsWindowsPath reports whether p looks like a Windows path.
func IsWindowsPath(p string) bool {
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		return true
	}
	return strings.HasPrefix(p, `\\`) || strings.Contains(p, `\`)
}

func normalizeWindows(p string) string {
	p = strings.ReplaceAll(p, "/", `\`)

	prefix := ""
	if strings.HasPrefix(p, `\\`) {
		prefix = `\\`
		p = strings.TrimLeft(p, `\`)
	}

	var b strings.Builder
	b.Grow(len(p))
	lastSep := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '\\' {
			if lastSep {
				continue
			}
			lastSep = true
		} else {
			lastSep = false
		}
		b.WriteByte(c)
	}
	p = b.String()

	// Drive roots keep their separator: "C:\".
	if len(p) == 3 && p[1] == ':' && p[2] == '\\' {
		return prefix + p
	}
	if len(p) == 2 && p[1] == ':' && isASCIILetter(p[0]) {
		return prefix + p + `\`
	}
	return prefix + strings.TrimRight(p, `\`)
}

// expandPercent expands %NAME% references. Unknown names and unpaired
// percent signs are kept verbatim.
func expandPercent(p string, lookup LookupFunc) string {
	if !strings.Contains(p, "%") {
		return p
	}
	var b strings.Builder
	for {
		start := strings.IndexByte(p, '%')
		if start < 0 {
			b.WriteString(p)
			break
		}
		end := strings.IndexByte(p[start+1:], '%')
		if end < 0 {
			b.WriteString(p)
			break
		}
		end += start + 1
		name := p[start+1 : end]
		b.WriteString(p[:start])
		if v, ok := lookup(name); ok && name != "" {
			b.WriteString(v)
			p = p[end+1:]
			continue
		}
		// Keep the leading % and rescan from the closing one, which may open
		// the next reference.
		b.WriteString(p[start:end])
		p = p[end:]
	}
	return b.String()
}

// Segments splits a normalized path on either separator, dropping empty parts.
func Segments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '\\' || r == '/' })
}

// Base returns the last path segment, or "" for an empty path.
func Base(p string) string {
	segs := Segments(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Stem returns the base name without its final extension.
func Stem(p string) string {
	base := Base(p)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
