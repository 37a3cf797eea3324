package tray

import (
	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
)

const (
	Title   = "Stow"
	Tooltip = "Stow Dashboard"
)

// Submitter receives the commands produced by menu clicks
type Submitter interface {
	Submit(cmd dispatch.Command, source reqcontext.Source) bool
}

// MenuItem is one entry of the tray menu. Separator entries have no label.
type MenuItem struct {
	Command dispatch.Command
	Label   string
	Tooltip string
}

// Menu returns the tray menu in display order
func Menu() []MenuItem {
	return []MenuItem{
		{Command: dispatch.CommandShow, Label: "Show Dashboard", Tooltip: "Open the dashboard window"},
		{Command: dispatch.CommandHide, Label: "Hide Dashboard", Tooltip: "Hide the dashboard window"},
		{Command: dispatch.CommandRescan, Label: "Rescan Projects", Tooltip: "Ask the server to rescan projects"},
		{Command: dispatch.Separator},
		{Command: dispatch.CommandQuit, Label: "Quit", Tooltip: "Stop the server and quit"},
	}
}
