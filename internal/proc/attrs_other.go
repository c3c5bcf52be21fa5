//go:build !linux

package proc

import "os/exec"

// SetParentDeathSignal is a no-op outside Linux; Pdeathsig is a Linux-only
// kernel feature.
func SetParentDeathSignal(_ *exec.Cmd) {}

// SetDetached is a no-op outside Linux. Detached children on other
// platforms simply rely on not being signaled by the controller.
func SetDetached(_ *exec.Cmd) {}
