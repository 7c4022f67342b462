package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// workerEnv marks a spawned process as worker N. Its presence is what
// distinguishes a worker from the master; the value only labels logs.
const workerEnv = "DUNNO_WORKER_ID"

// workerID reports whether this process was spawned as a worker.
func workerID() (int, bool) {
	v := os.Getenv(workerEnv)
	if v == "" {
		return 0, false
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

// workerCommand assembles the re-exec of this binary as worker id: the
// same arguments, the inherited environment plus the worker marker, and
// the master's stdout/stderr.
func workerCommand(exe string, id int) *exec.Cmd {
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", workerEnv, id))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// supervise re-executes this binary once per configured worker, each
// with the worker marker set and the same command line, then waits them
// all out. Workers are independent: one dying neither restarts it nor
// stops the others. Restart policy belongs to whatever supervises the
// master.
func (a *App) supervise(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	a.log.Info("starting workers",
		zap.Int("count", a.cfg.Workers),
		zap.String("addr", a.cfg.ListenAddr()),
		zap.String("root", a.cfg.DocRoot))

	// No shared context on the group: a failed worker must not cancel
	// its siblings.
	var g errgroup.Group
	procs := make([]*os.Process, 0, a.cfg.Workers)

	for id := 0; id < a.cfg.Workers; id++ {
		cmd := workerCommand(exe, id)

		if err := cmd.Start(); err != nil {
			a.log.Error("worker spawn failed", zap.Int("worker", id), zap.Error(err))
			spawnErr := fmt.Errorf("spawn worker %d: %w", id, err)
			g.Go(func() error { return spawnErr })
			continue
		}

		a.log.Info("worker started", zap.Int("worker", id), zap.Int("pid", cmd.Process.Pid))
		procs = append(procs, cmd.Process)

		wid, proc := id, cmd
		g.Go(func() error {
			if err := proc.Wait(); err != nil {
				a.log.Warn("worker exited with failure", zap.Int("worker", wid), zap.Error(err))
				return fmt.Errorf("worker %d: %w", wid, err)
			}
			a.log.Info("worker exited", zap.Int("worker", wid))
			return nil
		})
	}

	// Forward shutdown once. Signals sent to already-gone processes
	// just error and are ignored.
	go func() {
		<-ctx.Done()
		a.log.Info("stopping workers", zap.Int("count", len(procs)))
		for _, p := range procs {
			p.Signal(unix.SIGTERM)
		}
	}()

	return g.Wait()
}
