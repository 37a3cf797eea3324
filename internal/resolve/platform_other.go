//go:build !darwin

package resolve

import "github.com/stow-dashboard/stow-desktop/internal/config"

func platformStrategies(string, *config.Config) []Strategy {
	return nil
}
