//go:build darwin

package resolve

import (
	"path"

	"github.com/stow-dashboard/stow-desktop/internal/config"
)

// platformStrategies prefers the copy bundled inside the .app resources
func platformStrategies(exe string, cfg *config.Config) []Strategy {
	return []Strategy{
		BundleResourcesStrategy{
			Executable: exe,
			Resource:   path.Base(cfg.StandaloneSubpath),
		},
	}
}
