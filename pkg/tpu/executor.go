package tpu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	eoerrors "github.com/erfanzar/eopod/errors"
)

// Runner issues a single remote command invocation against a target. It
// does not retry and does not log; one call spawns exactly one gcloud
// invocation.
type Runner interface {
	Execute(ctx context.Context, target Target, req Request) (Result, error)
}

// Describer fetches the target's describe document as raw JSON.
type Describer interface {
	Describe(ctx context.Context, target Target) ([]byte, error)
}

// Client is the full gcloud surface the manager needs.
type Client interface {
	Runner
	Describer
	Invoke(ctx context.Context, args ...string) (Result, error)
}

// GcloudRunner executes remote commands by invoking the gcloud binary as a
// subprocess.
type GcloudRunner struct {
	// Binary is the executable to invoke. Defaults to "gcloud".
	Binary string

	// Stdout and Stderr receive remote output in streaming mode. They
	// default to the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewGcloudRunner creates a runner for the gcloud binary on PATH.
func NewGcloudRunner() *GcloudRunner {
	return &GcloudRunner{Binary: "gcloud"}
}

func (g *GcloudRunner) binary() string {
	if g.Binary != "" {
		return g.Binary
	}
	return "gcloud"
}

func (g *GcloudRunner) streamStdout() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

func (g *GcloudRunner) streamStderr() io.Writer {
	if g.Stderr != nil {
		return g.Stderr
	}
	return os.Stderr
}

// sshArgs builds the argument vector for one tpu-vm ssh invocation. The
// remote command travels as a single --command argument; the remote shell
// interprets it.
func sshArgs(target Target, worker, command string) []string {
	return []string{
		"compute", "tpus", "tpu-vm", "ssh", target.Name,
		fmt.Sprintf("--zone=%s", target.Zone),
		fmt.Sprintf("--worker=%s", worker),
		fmt.Sprintf("--project=%s", target.Project),
		fmt.Sprintf("--command=%s", command),
	}
}

// BackgroundCommand rewrites a command to detach via nohup, redirecting
// output to per-worker log files in the remote home directory and echoing
// the spawned process ID as the only output.
func BackgroundCommand(target Target, worker, command string) string {
	outLog := fmt.Sprintf("%s_%s_output.log", target.Name, worker)
	errLog := fmt.Sprintf("%s_%s_error.log", target.Name, worker)
	return fmt.Sprintf("nohup sh -c %s > %s 2> %s & echo $!",
		Quote(command), outLog, errLog)
}

// Execute runs one remote command. Nonzero remote exits are reported in the
// Result with a nil error; a non-nil error means the gcloud process could
// not be launched (or the attempt context expired).
func (g *GcloudRunner) Execute(ctx context.Context, target Target, req Request) (Result, error) {
	command := req.Command
	if req.Background {
		command = BackgroundCommand(target, req.Worker, command)
	}

	args := sshArgs(target, req.Worker, command)
	cmd := exec.CommandContext(ctx, g.binary(), args...)

	if req.Stream {
		// Let output through to the terminal. The exit status here is the
		// gcloud wrapper's own, which is less faithful than the captured
		// path's remote exit status.
		cmd.Stdout = g.streamStdout()
		cmd.Stderr = g.streamStderr()
		err := cmd.Run()
		return classify(ctx, err, "", "")
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res, err := classify(ctx, err, stdout.String(), stderr.String())
	if err == nil && req.Background {
		// The background rewrite echoes the PID as the only output; strip
		// the shell's trailing newline so callers get the bare PID.
		res.Stdout = strings.TrimSpace(res.Stdout)
	}
	return res, err
}

// classify maps a subprocess outcome onto the result/error contract.
// Captured output is reported verbatim; it round-trips into the history
// log untouched.
func classify(ctx context.Context, err error, stdout, stderr string) (Result, error) {
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, eoerrors.Wrap(ctx.Err(), eoerrors.ErrTimeout, "command timed out")
	}
	if err == nil {
		return Result{ExitCode: 0, Stdout: stdout, Stderr: stderr}, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return Result{ExitCode: exitErr.ExitCode(), Stdout: stdout, Stderr: stderr}, nil
	}
	return Result{}, eoerrors.Wrap(err, eoerrors.ErrLaunch, "failed to launch gcloud")
}

// Interactive starts an ssh session with no --command argument, attached
// to the invoking terminal, and waits for it to end. The session's exit
// status is not interpreted.
func (g *GcloudRunner) Interactive(ctx context.Context, target Target, worker string) error {
	args := []string{
		"compute", "tpus", "tpu-vm", "ssh", target.Name,
		fmt.Sprintf("--zone=%s", target.Zone),
		fmt.Sprintf("--worker=%s", worker),
		fmt.Sprintf("--project=%s", target.Project),
	}
	cmd := exec.CommandContext(ctx, g.binary(), args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = g.streamStdout()
	cmd.Stderr = g.streamStderr()

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return eoerrors.Wrap(err, eoerrors.ErrLaunch, "failed to launch gcloud")
}

// Invoke runs an arbitrary gcloud subcommand with captured output. Used for
// the single-shot delegations (describe, firewall rules) that carry no
// retry logic of their own.
func (g *GcloudRunner) Invoke(ctx context.Context, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary(), args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return classify(ctx, err, stdout.String(), stderr.String())
}

// Describe fetches the target's describe document as JSON.
func (g *GcloudRunner) Describe(ctx context.Context, target Target) ([]byte, error) {
	res, err := g.Invoke(ctx,
		"compute", "tpus", "describe", target.Name,
		fmt.Sprintf("--zone=%s", target.Zone),
		fmt.Sprintf("--project=%s", target.Project),
		"--format=json",
	)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, eoerrors.New(eoerrors.ErrRemote,
			fmt.Sprintf("failed to get TPU status: %s", res.Stderr))
	}
	return []byte(res.Stdout), nil
}
