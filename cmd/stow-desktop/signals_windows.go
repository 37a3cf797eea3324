//go:build windows

package main

import (
	"os"
	"syscall"

	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
)

var handledSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func commandForSignal(os.Signal) dispatch.Command {
	return dispatch.CommandQuit
}
