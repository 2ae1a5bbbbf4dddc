// Package tpu wraps the gcloud CLI to run commands against Cloud TPU VMs.
// It never talks to the cloud directly; every operation is one invocation
// of the external binary.
package tpu

import (
	"fmt"
	"strconv"

	eoerrors "github.com/erfanzar/eopod/errors"
)

// WorkerAll broadcasts a command to every worker of the target.
const WorkerAll = "all"

// ParseWorker validates a worker selector from the command line. Accepted
// forms are WorkerAll and a non-negative integer index.
func ParseWorker(s string) (string, error) {
	if s == WorkerAll {
		return WorkerAll, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", eoerrors.New(eoerrors.ErrInvalidInput,
			fmt.Sprintf("invalid worker %q: must be %q or a non-negative integer", s, WorkerAll))
	}
	return s, nil
}

// Target identifies the TPU resource commands execute against.
type Target struct {
	Project string
	Zone    string
	Name    string
}

// Complete reports whether all identity fields are present.
func (t Target) Complete() bool {
	return t.Project != "" && t.Zone != "" && t.Name != ""
}

// Request describes one remote command dispatch.
type Request struct {
	// Command is the remote shell command, treated as an opaque string.
	Command string

	// Worker is an integer worker index or WorkerAll.
	Worker string

	// Stream lets remote output through to the invoking terminal instead
	// of capturing it. Mutually exclusive with Background.
	Stream bool

	// Background detaches the command on the remote side via nohup and
	// captures the spawned process ID as the only output.
	Background bool
}

// Result is the outcome of one dispatch attempt. Exit code 0 is the sole
// success signal; stdout and stderr are never inspected to infer success.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the attempt exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// WorkerProcesses maps a worker index to the process IDs discovered on it.
// Transient scan state, never persisted.
type WorkerProcesses map[int][]string

// KillResult records the outcome of one kill command on one worker.
type KillResult struct {
	Worker  int
	PID     string
	Success bool
	Stderr  string
}
