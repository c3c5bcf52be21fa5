package proc

import "github.com/shirou/gopsutil/v3/process"

// Alive reports whether a process with the given pid currently exists.
// Used to enrich stop-timeout errors with whether the child is actually
// still running, and by callers re-attaching to detached children. Errors
// from the probe are treated as "not alive"; the answer is advisory.
func Alive(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}
