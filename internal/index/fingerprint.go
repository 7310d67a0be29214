package index

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Fingerprint hashes the UTC day stamp and the modification times of dirs.
// It changes when the day rolls over or when software is installed into or
// removed from one of the directories. Missing directories contribute a
// fixed marker.
func Fingerprint(dirs []string, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(now.UTC().Format("2006-01-02")))
	for _, d := range dirs {
		h.Write([]byte{0})
		h.Write([]byte(d))
		h.Write([]byte{'='})
		info, err := os.Stat(d)
		if err != nil {
			h.Write([]byte("-"))
			continue
		}
		h.Write([]byte(strconv.FormatInt(info.ModTime().UTC().UnixNano(), 10)))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// FingerprintDirs returns the well-known directories whose changes
// invalidate the cache.
func FingerprintDirs() []string {
	var dirs []string
	add := func(base string, elem ...string) {
		if base == "" {
			return
		}
		dirs = append(dirs, filepath.Join(append([]string{base}, elem...)...))
	}

	if runtime.GOOS == "windows" {
		add(os.Getenv("ProgramFiles"))
		add(os.Getenv("ProgramFiles(x86)"))
		add(os.Getenv("LOCALAPPDATA"), "Programs")
		add(os.Getenv("ProgramData"), "Microsoft", "Windows", "Start Menu", "Programs")
		add(os.Getenv("APPDATA"), "Microsoft", "Windows", "Start Menu", "Programs")
		return dirs
	}

	home, _ := os.UserHomeDir()
	add("/opt")
	add("/usr/local/bin")
	add("/usr/share/applications")
	add(home, ".local", "share", "applications")
	if runtime.GOOS == "darwin" {
		add("/Applications")
		add(home, "Applications")
	}
	return dirs
}
