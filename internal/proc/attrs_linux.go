//go:build linux

package proc

import (
	"os/exec"
	"syscall"
)

// SetParentDeathSignal arranges for the child to receive SIGTERM when its
// parent dies. Pdeathsig is a Linux-only kernel feature; it prevents
// supervised children from being orphaned if the supervising process is
// killed abruptly. Never combined with SetDetached.
func SetParentDeathSignal(cmd *exec.Cmd) {
	attr := sysProcAttr(cmd)
	attr.Pdeathsig = syscall.SIGTERM
}

// SetDetached places the child in its own session so it survives the
// parent's death. Used for controllers constructed as detachable.
func SetDetached(cmd *exec.Cmd) {
	attr := sysProcAttr(cmd)
	attr.Setsid = true
}

func sysProcAttr(cmd *exec.Cmd) *syscall.SysProcAttr {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	return cmd.SysProcAttr
}
