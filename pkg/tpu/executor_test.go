package tpu

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eoerrors "github.com/erfanzar/eopod/errors"
)

// writeScript installs a shell script standing in for the gcloud binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-gcloud")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

var testTarget = Target{Project: "p", Zone: "z", Name: "t"}

func TestExecuteBuildsSSHInvocation(t *testing.T) {
	runner := &GcloudRunner{Binary: writeScript(t, `printf '%s\n' "$@"`)}

	res, err := runner.Execute(context.Background(), testTarget, Request{
		Command: "echo hello",
		Worker:  "0",
	})
	require.NoError(t, err)
	require.True(t, res.Success())

	args := strings.Split(strings.TrimSuffix(res.Stdout, "\n"), "\n")
	assert.Equal(t, []string{
		"compute", "tpus", "tpu-vm", "ssh", "t",
		"--zone=z",
		"--worker=0",
		"--project=p",
		"--command=echo hello",
	}, args)
}

func TestExecuteCapturedFailure(t *testing.T) {
	runner := &GcloudRunner{Binary: writeScript(t, `echo "boom" >&2; exit 3`)}

	res, err := runner.Execute(context.Background(), testTarget, Request{
		Command: "bad",
		Worker:  "all",
	})
	require.NoError(t, err, "nonzero remote exits are results, not errors")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom\n", res.Stderr)
	assert.False(t, res.Success())
}

func TestExecuteCapturedOutputVerbatim(t *testing.T) {
	runner := &GcloudRunner{Binary: writeScript(t, `echo "hello"`)}

	res, err := runner.Execute(context.Background(), testTarget, Request{
		Command: "echo hello",
		Worker:  "all",
	})
	require.NoError(t, err)

	// Captured stdout round-trips untouched, trailing newline included.
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestExecuteLaunchFailure(t *testing.T) {
	runner := &GcloudRunner{Binary: filepath.Join(t.TempDir(), "does-not-exist")}

	_, err := runner.Execute(context.Background(), testTarget, Request{
		Command: "echo hi",
		Worker:  "all",
	})
	require.Error(t, err)
	assert.True(t, eoerrors.IsLaunch(err))
}

func TestExecuteTimeout(t *testing.T) {
	runner := &GcloudRunner{Binary: writeScript(t, `sleep 5`)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := runner.Execute(ctx, testTarget, Request{
		Command: "sleep forever",
		Worker:  "all",
	})
	require.Error(t, err)
	assert.True(t, eoerrors.IsTimeout(err))
}

// Streaming reports the wrapper's own exit status and captures nothing.
// This is deliberately less faithful than the captured path, which reports
// the remote command's exit status; the asymmetry is part of the contract.
func TestExecuteStreamingAsymmetry(t *testing.T) {
	var out, errOut bytes.Buffer
	runner := &GcloudRunner{
		Binary: writeScript(t, `echo "streamed"; echo "noise" >&2; exit 2`),
		Stdout: &out,
		Stderr: &errOut,
	}

	res, err := runner.Execute(context.Background(), testTarget, Request{
		Command: "whatever",
		Worker:  "0",
		Stream:  true,
	})
	require.NoError(t, err)

	// Output went to the terminal writers, not the result.
	assert.Empty(t, res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, "streamed\n", out.String())
	assert.Equal(t, "noise\n", errOut.String())

	// The exit code is the wrapper's, not a remote-derived one.
	assert.Equal(t, 2, res.ExitCode)
}

func TestBackgroundCommand(t *testing.T) {
	got := BackgroundCommand(testTarget, "0", "python train.py")
	assert.Equal(t,
		"nohup sh -c 'python train.py' > t_0_output.log 2> t_0_error.log & echo $!",
		got)
}

func TestExecuteBackgroundCapturesPID(t *testing.T) {
	// The fake prints the --command argument's last word, standing in for
	// the echoed PID.
	runner := &GcloudRunner{Binary: writeScript(t, `echo "12345"`)}

	res, err := runner.Execute(context.Background(), testTarget, Request{
		Command:    "python train.py",
		Worker:     "0",
		Background: true,
	})
	require.NoError(t, err)
	require.True(t, res.Success())
	assert.Equal(t, "12345", res.Stdout)
}

func TestDescribe(t *testing.T) {
	runner := &GcloudRunner{Binary: writeScript(t, `echo '{"name":"t","state":"READY"}'`)}

	data, err := runner.Describe(context.Background(), testTarget)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"t","state":"READY"}`, string(data))
}

func TestInteractiveOmitsCommandArgument(t *testing.T) {
	var out bytes.Buffer
	runner := &GcloudRunner{
		Binary: writeScript(t, `printf '%s\n' "$@"`),
		Stdout: &out,
	}

	err := runner.Interactive(context.Background(), testTarget, "0")
	require.NoError(t, err)

	args := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"compute", "tpus", "tpu-vm", "ssh", "t",
		"--zone=z",
		"--worker=0",
		"--project=p",
	}, args)
	for _, arg := range args {
		assert.NotContains(t, arg, "--command")
	}
}

func TestInteractiveToleratesRemoteExit(t *testing.T) {
	runner := &GcloudRunner{Binary: writeScript(t, `exit 130`), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	// A session ending with a nonzero status is still a finished session.
	assert.NoError(t, runner.Interactive(context.Background(), testTarget, WorkerAll))
}

func TestInteractiveLaunchFailure(t *testing.T) {
	runner := &GcloudRunner{Binary: filepath.Join(t.TempDir(), "missing")}

	err := runner.Interactive(context.Background(), testTarget, WorkerAll)
	require.Error(t, err)
	assert.True(t, eoerrors.IsLaunch(err))
}

func TestDescribeFailure(t *testing.T) {
	runner := &GcloudRunner{Binary: writeScript(t, `echo "TPU not found" >&2; exit 1`)}

	_, err := runner.Describe(context.Background(), testTarget)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TPU not found")
}
