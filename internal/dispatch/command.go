package dispatch

import "strings"

// Command identifies a user action coming from the tray, a signal or the
// control API
type Command string

const (
	CommandShow   Command = "show"
	CommandHide   Command = "hide"
	CommandRescan Command = "rescan"
	CommandQuit   Command = "quit"
	// CommandToggle flips visibility; it has no menu item
	CommandToggle Command = "toggle"
	// Separator marks a menu divider and carries no action
	Separator Command = "sep"
)

// Parse normalizes an identifier. Unknown identifiers are returned as-is
// and dispatch treats them as no-ops.
func Parse(id string) Command {
	return Command(strings.ToLower(strings.TrimSpace(id)))
}

// Actionable reports whether dispatching c does anything
func (c Command) Actionable() bool {
	switch c {
	case CommandShow, CommandHide, CommandRescan, CommandQuit, CommandToggle:
		return true
	}
	return false
}

func (c Command) String() string {
	return string(c)
}
