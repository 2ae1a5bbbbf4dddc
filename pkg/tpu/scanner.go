package tpu

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// scanCommand enumerates processes holding the accelerator device handle.
// A nonzero exit with no output means no processes were found.
const scanCommand = `sudo lsof -w /dev/accel0 2>/dev/null | grep -v COMMAND | awk '{print $2}' | sort -u`

// cleanupCommands free the accelerator after a kill: drop the libtpu lock
// file, then unload and reload the driver module. Individual failures are
// tolerated; the sequence always runs to completion.
var cleanupCommands = []string{
	"sudo rm -f /tmp/libtpu_lockfile",
	"sudo rmmod tpu_driver",
	"sudo modprobe tpu_driver",
}

// KillOptions controls a scan-and-kill pass.
type KillOptions struct {
	// Worker restricts the pass to one worker index. Negative means all
	// workers discovered from the target status.
	Worker int

	// PIDs narrows each worker's discovered list to this set.
	PIDs []string

	// Force skips the confirmation gate and uses SIGKILL instead of
	// SIGTERM.
	Force bool
}

// ConfirmFunc is the yes/no boundary consulted before killing anything.
type ConfirmFunc func(procs WorkerProcesses) bool

// KillReport aggregates the outcome of one scan-and-kill pass.
type KillReport struct {
	Procs   WorkerProcesses
	Results []KillResult
	State   string
	Aborted bool
}

// ScanProcesses concurrently runs the detection command on every listed
// worker and returns only the workers that reported processes. The scan
// joins on all workers before returning.
func (m *Manager) ScanProcesses(ctx context.Context, workers []int) (WorkerProcesses, error) {
	found := make([][]string, len(workers))

	g, gctx := errgroup.WithContext(ctx)
	for i, worker := range workers {
		i, worker := i, worker
		g.Go(func() error {
			res, err := m.client.Execute(gctx, m.target, Request{
				Command: scanCommand,
				Worker:  strconv.Itoa(worker),
			})
			if err != nil {
				return fmt.Errorf("worker %d scan: %w", worker, err)
			}
			// Nonzero exit here just means the pipeline matched nothing.
			found[i] = parsePIDs(res.Stdout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	procs := make(WorkerProcesses)
	for i, worker := range workers {
		if len(found[i]) > 0 {
			procs[worker] = found[i]
		}
	}
	return procs, nil
}

func parsePIDs(output string) []string {
	var pids []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, err := strconv.Atoi(line); err != nil {
			continue
		}
		pids = append(pids, line)
	}
	return pids
}

// FilterPIDs intersects each worker's discovered list with the filter set.
// Workers with empty intersections are dropped entirely.
func FilterPIDs(procs WorkerProcesses, filter []string) WorkerProcesses {
	if len(filter) == 0 {
		return procs
	}
	wanted := make(map[string]bool, len(filter))
	for _, pid := range filter {
		wanted[pid] = true
	}

	filtered := make(WorkerProcesses)
	for worker, pids := range procs {
		var keep []string
		for _, pid := range pids {
			if wanted[pid] {
				keep = append(keep, pid)
			}
		}
		if len(keep) > 0 {
			filtered[worker] = keep
		}
	}
	return filtered
}

// KillProcesses concurrently kills the discovered processes, one worker per
// task, serially per PID within a worker. Force selects SIGKILL over
// SIGTERM. Per-PID failures are collected, never propagated.
func (m *Manager) KillProcesses(ctx context.Context, procs WorkerProcesses, force bool) []KillResult {
	signal := 15
	if force {
		signal = 9
	}

	var (
		mu      sync.Mutex
		results []KillResult
		wg      sync.WaitGroup
	)
	for worker, pids := range procs {
		worker, pids := worker, pids
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, pid := range pids {
				res, err := m.client.Execute(ctx, m.target, Request{
					Command: fmt.Sprintf("sudo kill -%d %s", signal, pid),
					Worker:  strconv.Itoa(worker),
				})
				kr := KillResult{Worker: worker, PID: pid}
				switch {
				case err != nil:
					kr.Stderr = err.Error()
				case res.Success():
					kr.Success = true
				default:
					kr.Stderr = res.Stderr
				}
				mu.Lock()
				results = append(results, kr)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Worker != results[j].Worker {
			return results[i].Worker < results[j].Worker
		}
		return results[i].PID < results[j].PID
	})
	return results
}

// CleanupWorkers concurrently runs the cleanup sequence on each worker.
// Each command is wrapped so a failure never aborts the sequence.
func (m *Manager) CleanupWorkers(ctx context.Context, workers []int) {
	var wg sync.WaitGroup
	for _, worker := range workers {
		worker := worker
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, command := range cleanupCommands {
				_, _ = m.client.Execute(ctx, m.target, Request{
					Command: fmt.Sprintf("%s || true", command),
					Worker:  strconv.Itoa(worker),
				})
			}
		}()
	}
	wg.Wait()
}

// ScanAndKill runs the full scan, confirm, kill, cleanup, re-query flow.
// Any error anywhere surfaces as the single returned error; the caller
// reports and logs it under one operation name.
func (m *Manager) ScanAndKill(ctx context.Context, opts KillOptions, confirm ConfirmFunc) (*KillReport, error) {
	var workers []int
	if opts.Worker >= 0 {
		workers = []int{opts.Worker}
	} else {
		var err error
		workers, err = m.Workers(ctx)
		if err != nil {
			return nil, err
		}
	}

	procs, err := m.ScanProcesses(ctx, workers)
	if err != nil {
		return nil, err
	}
	procs = FilterPIDs(procs, opts.PIDs)

	report := &KillReport{Procs: procs}
	if len(procs) == 0 {
		return report, nil
	}

	if !opts.Force && (confirm == nil || !confirm(procs)) {
		report.Aborted = true
		return report, nil
	}

	report.Results = m.KillProcesses(ctx, procs, opts.Force)

	killed := make([]int, 0, len(procs))
	for worker := range procs {
		killed = append(killed, worker)
	}
	sort.Ints(killed)
	m.CleanupWorkers(ctx, killed)

	st, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	report.State = st.State
	return report, nil
}
