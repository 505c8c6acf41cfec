//go:build linux

package tracer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/rsstrace/internal/rssprobe"
)

// pollInterval is the sleep between drain passes. It is a var, not a
// const, so tests can shrink it; production code never overrides it.
var pollInterval = 200 * time.Microsecond

// traceOptions are installed on the root tracee once, immediately after
// its initial post-execve stop is consumed. They propagate to every descendant
// the kernel creates under it. PTRACE_O_EXITKILL (from golang.org/x/sys/unix,
// not exposed by the standard library's syscall package) ensures a
// supervisor that dies unexpectedly does not leave a stopped tracee
// orphaned.
const traceOptions = syscall.PTRACE_O_TRACECLONE |
	syscall.PTRACE_O_TRACEFORK |
	syscall.PTRACE_O_TRACEVFORK |
	syscall.PTRACE_O_TRACEEXIT |
	unix.PTRACE_O_EXITKILL

// Outcome is everything the event pump produces once the process tree has
// drained: the final table, the root's pid, and (when requested) the
// root's propagated exit code.
type Outcome struct {
	Table    *Table
	RootID   int
	ExitCode *int32
}

// Run spawns command, traces its entire descendant tree to completion,
// and returns the drained Outcome. It locks the calling goroutine to its
// OS thread for its lifetime: every ptrace syscall for a given tracee
// must originate from the thread that attached to it.
func Run(command []string, returnResult bool, logger *slog.Logger) (*Outcome, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}

	runtime.LockOSThread()

	cmd, err := spawn(command)
	if err != nil {
		return nil, err
	}
	rootID := cmd.Process.Pid

	table := NewTable()
	table.InsertNew(rootID)

	var ws syscall.WaitStatus
	if _, err := syscall.Wait4(rootID, &ws, 0, nil); err != nil {
		return nil, fmt.Errorf("%w: consume initial stop for %d: %v", ErrTraceControl, rootID, err)
	}

	if err := syscall.PtraceSetOptions(rootID, traceOptions); err != nil {
		return nil, fmt.Errorf("%w: set options on %d: %v", ErrTraceControl, rootID, err)
	}

	s := &supervisor{table: table, rootID: rootID, returnResult: returnResult, logger: logger}
	logger.Debug("root tracee attached", "pid", rootID)

	if err := s.cont(rootID, 0); err != nil {
		return nil, err
	}

	for !table.AllExited() {
		for _, pid := range table.AliveIDs() {
			wpid, err := syscall.Wait4(pid, &ws, syscall.WNOHANG, nil)
			if err != nil {
				if errors.Is(err, syscall.ECHILD) {
					// Already reaped via a different wait (e.g. we
					// detached it and the kernel has since recycled the
					// pid bookkeeping); nothing left to observe.
					table.MarkExited(pid)
					continue
				}
				return nil, fmt.Errorf("%w: wait4(%d): %v", ErrTraceControl, pid, err)
			}
			if wpid == 0 {
				continue // still running; no state change this pass
			}
			if err := s.dispatch(pid, ws); err != nil {
				return nil, err
			}
		}
		time.Sleep(pollInterval)
	}

	return &Outcome{Table: table, RootID: rootID, ExitCode: s.exitCode}, nil
}

// supervisor holds the mutable state the dispatch loop threads through
// each drain pass: the table, which pid is the root, whether the root's
// exit code should be propagated, and the logger for --debug tracing.
type supervisor struct {
	table        *Table
	rootID       int
	returnResult bool
	exitCode     *int32
	logger       *slog.Logger
}

func (s *supervisor) dispatch(pid int, ws syscall.WaitStatus) error {
	switch {
	case ws.Exited():
		s.logger.Debug("tracee exited", "pid", pid, "code", ws.ExitStatus())
		s.table.MarkExited(pid)
		if pid == s.rootID && s.returnResult {
			code := int32(ws.ExitStatus())
			s.exitCode = &code
		}
		return nil

	case ws.Signaled():
		s.logger.Debug("tracee killed by signal", "pid", pid, "signal", ws.Signal())
		s.table.MarkExited(pid)
		if pid == s.rootID && s.returnResult {
			code := int32(128 + int(ws.Signal()))
			s.exitCode = &code
		}
		return nil

	case ws.Stopped():
		return s.dispatchStopped(pid, ws)

	default:
		// Unhandled variant (e.g. Continued()): continue without
		// re-injecting a signal.
		return s.cont(pid, 0)
	}
}

func (s *supervisor) dispatchStopped(pid int, ws syscall.WaitStatus) error {
	sig := ws.StopSignal()

	if sig == syscall.SIGTRAP {
		switch ws.TrapCause() {
		case syscall.PTRACE_EVENT_EXIT:
			return s.handlePreExit(pid)
		case syscall.PTRACE_EVENT_FORK, syscall.PTRACE_EVENT_VFORK, syscall.PTRACE_EVENT_CLONE:
			return s.handleNewDescendant(pid)
		default:
			// A plain SIGTRAP not tagged with one of the above causes is
			// assumed to originate from the tracing machinery itself
			// (e.g. the trap that follows a descendant's execve); swallow
			// it.
			return s.cont(pid, 0)
		}
	}

	// Ordinary signal delivery: re-inject it, except SIGSTOP, which is
	// how ptrace itself parks newly attached tracees and carries no
	// meaning to redeliver.
	if sig == syscall.SIGSTOP {
		sig = 0
	}
	return s.cont(pid, int(sig))
}

// handlePreExit reads RSS while the tracee is still addressable in
// /proc, then either resumes it (root, when its terminal exit status is
// still needed) or detaches it immediately. The read must precede the
// detach-vs-continue decision: once detached, smaps_rollup can vanish at
// any moment.
func (s *supervisor) handlePreExit(pid int) error {
	rss, err := rssprobe.Read(pid)
	if err != nil {
		if isNoSuchProcess(err) {
			s.table.MarkExited(pid)
			return nil
		}
		return fmt.Errorf("%w: read rss for %d: %v", ErrTraceControl, pid, err)
	}
	s.table.RecordRSS(pid, rss)
	s.logger.Debug("pre-exit rss reading", "pid", pid, "rss", rssprobe.Bytes(rss).Humanized())

	if pid == s.rootID && s.returnResult {
		if err := s.cont(pid, 0); err != nil {
			return err
		}
		return nil
	}

	if err := syscall.PtraceDetach(pid, 0); err != nil && !isNoSuchProcess(err) {
		return fmt.Errorf("%w: detach %d: %v", ErrTraceControl, pid, err)
	}
	s.table.MarkExited(pid)
	return nil
}

func (s *supervisor) handleNewDescendant(pid int) error {
	msg, err := syscall.PtraceGetEventMsg(pid)
	if err != nil {
		return fmt.Errorf("%w: get event msg for %d: %v", ErrTraceControl, pid, err)
	}
	child := int(msg)
	if s.table.Exists(child) {
		// A thread-group's CLONE and FORK events can both surface the
		// same new tid across a drain pass; InsertNew is idempotent but
		// skip the duplicate AppendChild too.
		s.logger.Debug("duplicate new-descendant event", "parent", pid, "child", child)
		return s.cont(pid, 0)
	}
	s.logger.Debug("new descendant", "parent", pid, "child", child)
	s.table.InsertNew(child)
	s.table.AppendChild(pid, child)
	return s.cont(pid, 0)
}

func (s *supervisor) cont(pid, sig int) error {
	if err := syscall.PtraceCont(pid, sig); err != nil {
		if isNoSuchProcess(err) {
			s.table.MarkExited(pid)
			return nil
		}
		return fmt.Errorf("%w: cont %d: %v", ErrTraceControl, pid, err)
	}
	return nil
}

// isNoSuchProcess recognizes a vanished-tracee error from either of the
// two kernel paths that can report it: a ptrace control operation, which
// fails with ESRCH, or rssprobe.Read's os.Open of /proc/<pid>/smaps_rollup,
// which surfaces the same condition as a wrapped os.ErrNotExist (ENOENT)
// once the kernel has already torn the proc entry down.
func isNoSuchProcess(err error) bool {
	return errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrNotExist)
}

// discardWriter is a minimal io.Writer sink, used when the caller passes
// a nil logger so the pump never has to nil-check it.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
