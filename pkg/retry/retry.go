// Package retry wraps the remote executor with bounded retries, a fixed
// inter-attempt delay, and an absolute per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	eoerrors "github.com/erfanzar/eopod/errors"
	"github.com/erfanzar/eopod/pkg/tpu"
)

// timeoutLogMessage is the exact error-log text for a timed-out attempt,
// distinguishable from a remote failure's entry (which carries stderr).
const timeoutLogMessage = "Command timed out"

// Policy holds the retry configuration for one command invocation. It is
// built from CLI flags and discarded when the command completes.
type Policy struct {
	// MaxAttempts is the maximum number of attempts including the initial
	// attempt. Must be at least 1.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
}

// DefaultPolicy returns the run command's default retry configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
		Timeout:     5 * time.Minute,
	}
}

// TerminalStatus is the final state of a command invocation.
type TerminalStatus int

const (
	// Succeeded means an attempt completed with exit code 0.
	Succeeded TerminalStatus = iota

	// Exhausted means every attempt failed with a nonzero exit.
	Exhausted

	// TimedOut means the final attempt (and possibly earlier ones) was
	// cut off by the per-attempt timeout.
	TimedOut

	// Aborted means an unexpected error ended the invocation early,
	// skipping remaining retries.
	Aborted
)

func (s TerminalStatus) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case TimedOut:
		return "timed out"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome reports how an invocation ended.
type Outcome struct {
	// Result is the final attempt's result; nil unless Status is
	// Succeeded.
	Result *tpu.Result

	// Attempts is the number of attempts actually made.
	Attempts int

	// Status is the terminal state.
	Status TerminalStatus

	// Err is the aborting error when Status is Aborted.
	Err error
}

// Recorder persists terminal outcomes and per-attempt failures. The
// orchestrator owns a single command's attempts; it reports to the recorder
// rather than keeping state itself.
type Recorder interface {
	RecordHistory(command, status, output string) error
	RecordError(command, message string) error
}

// OnAttempt is called before each attempt with the 1-based attempt number.
type OnAttempt func(attempt int)

// Orchestrator drives one command invocation through its attempts.
type Orchestrator struct {
	runner   tpu.Runner
	recorder Recorder

	// OnAttempt, when set, is notified as each attempt starts.
	OnAttempt OnAttempt

	// sleep is replaceable for tests.
	sleep func(time.Duration)
}

// New creates an orchestrator over the given executor and recorder.
func New(runner tpu.Runner, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		recorder: recorder,
		sleep:    time.Sleep,
	}
}

// Run executes the request under the policy. Attempts are strictly
// sequential; attempt n+1 never starts before attempt n's outcome is known.
// Retryable failures are absorbed up to MaxAttempts; unexpected errors
// abort immediately on the premise that retrying an unknown-class failure
// risks repeating a non-idempotent side effect.
func (o *Orchestrator) Run(ctx context.Context, target tpu.Target, req tpu.Request, policy Policy) Outcome {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	lastTimedOut := false
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if o.OnAttempt != nil {
			o.OnAttempt(attempt)
		}

		res, err := o.attempt(ctx, target, req, policy.Timeout)

		switch {
		case err == nil && res.Success():
			status := "success"
			if req.Background {
				status = "background"
			}
			o.record(req.Command, status, res.Stdout)
			return Outcome{Result: &res, Attempts: attempt, Status: Succeeded}

		case err == nil:
			lastTimedOut = false
			o.recordError(req.Command, res.Stderr)

		case eoerrors.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded):
			lastTimedOut = true
			o.recordError(req.Command, timeoutLogMessage)

		case eoerrors.IsRetryable(err):
			lastTimedOut = false
			o.recordError(req.Command, err.Error())

		default:
			o.recordError(req.Command, err.Error())
			return Outcome{Attempts: attempt, Status: Aborted, Err: err}
		}

		if attempt < policy.MaxAttempts && policy.Delay > 0 {
			o.sleep(policy.Delay)
		}
	}

	status := Exhausted
	if lastTimedOut {
		status = TimedOut
	}
	return Outcome{Attempts: policy.MaxAttempts, Status: status}
}

// attempt runs a single executor call, bounded by the per-attempt timeout.
// A timeout cancels only the waiting call; a remote process already
// detached in the background keeps running.
func (o *Orchestrator) attempt(ctx context.Context, target tpu.Target, req tpu.Request, timeout time.Duration) (tpu.Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return o.runner.Execute(ctx, target, req)
}

func (o *Orchestrator) record(command, status, output string) {
	if o.recorder == nil {
		return
	}
	_ = o.recorder.RecordHistory(command, status, output)
}

func (o *Orchestrator) recordError(command, message string) {
	if o.recorder == nil {
		return
	}
	_ = o.recorder.RecordError(command, message)
}

// Describe renders an outcome for the terminal.
func Describe(out Outcome, policy Policy) string {
	switch out.Status {
	case Succeeded:
		return "Command completed successfully!"
	case TimedOut:
		return fmt.Sprintf("Command timed out after %d attempts", out.Attempts)
	case Aborted:
		return fmt.Sprintf("Error: %v", out.Err)
	default:
		return fmt.Sprintf("Command failed after %d attempts", policy.MaxAttempts)
	}
}
