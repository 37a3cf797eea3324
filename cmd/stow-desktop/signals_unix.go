//go:build !windows

package main

import (
	"os"
	"syscall"

	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
)

var handledSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1}

// commandForSignal maps SIGUSR1 to toggle; everything else quits
func commandForSignal(sig os.Signal) dispatch.Command {
	if sig == syscall.SIGUSR1 {
		return dispatch.CommandToggle
	}
	return dispatch.CommandQuit
}
