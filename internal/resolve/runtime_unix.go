//go:build !windows

package resolve

import "os"

func defaultRuntimeCandidates() []string {
	return []string{
		"/opt/homebrew/bin/node", // Apple Silicon Homebrew
		"/usr/local/bin/node",    // Intel Homebrew / manual install
		"/usr/bin/node",          // System
		"/opt/local/bin/node",    // MacPorts
	}
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode()&0o111 != 0
}
