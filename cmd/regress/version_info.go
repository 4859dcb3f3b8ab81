package main

import (
	"os"
	"runtime/debug"
	"strings"
	"sync"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

var (
	versionOnce   sync.Once
	cachedVersion string
)

// appVersion returns the best-effort version for the regress binary.
// The lookup order is:
//  1. Explicit REGRESS_VERSION environment variable
//  2. The linker-provided version string
//  3. Go build information when available (e.g. go install regress@vX)
//  4. A development fallback string
func appVersion() string {
	versionOnce.Do(func() {
		cachedVersion = detectVersion()
	})
	return cachedVersion
}

func detectVersion() string {
	if v := strings.TrimSpace(os.Getenv("REGRESS_VERSION")); v != "" {
		return v
	}
	if v := strings.TrimSpace(version); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
