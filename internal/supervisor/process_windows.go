//go:build windows

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

// killProcessTree force-kills the child and its descendants with taskkill,
// falling back to killing the child alone
func killProcessTree(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}

	killCmd := exec.Command("taskkill", "/PID", fmt.Sprint(p.Pid), "/T", "/F")
	killCmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NO_WINDOW}
	if err := killCmd.Run(); err == nil {
		return nil
	}
	return p.Kill()
}

func exitSignal(*os.ProcessState) string {
	return ""
}
