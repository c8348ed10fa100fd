// Package buildversion resolves the running binary's module version for
// instrumentation labels, sourced from the Go module build info embedded
// by the toolchain.
package buildversion

import "runtime/debug"

// GetVersion returns the version of the named module as recorded in the
// binary's build info, or "dev" if the binary was not built with module
// information (e.g. `go run`).
func GetVersion(modulePath string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	if info.Main.Path == modulePath && info.Main.Version != "" {
		return info.Main.Version
	}

	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			return dep.Version
		}
	}

	return "dev"
}
