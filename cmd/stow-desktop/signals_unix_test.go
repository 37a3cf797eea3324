//go:build !windows

package main

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
)

func TestCommandForSignal(t *testing.T) {
	assert.Equal(t, dispatch.CommandQuit, commandForSignal(syscall.SIGINT))
	assert.Equal(t, dispatch.CommandQuit, commandForSignal(syscall.SIGTERM))
	assert.Equal(t, dispatch.CommandToggle, commandForSignal(syscall.SIGUSR1))
}
