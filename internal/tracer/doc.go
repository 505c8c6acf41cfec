// Package tracer is the trace engine: a single-threaded supervisor that
// attaches to a spawned child via ptrace(2), discovers every process and
// thread it creates, reads each tracee's peak RSS in the narrow window
// before the kernel tears it down, and retains the whole process tree for
// later aggregation.
//
// # Shape
//
//   - Table (table.go) is the in-memory map from pid to Record: exited
//     state, discovered children, and the one-shot RSS reading.
//
//   - spawn (launch_linux.go) forks and execs the root tracee via
//     os/exec with SysProcAttr{Ptrace: true}, which performs the
//     PTRACE_TRACEME/execve handshake inside the forked child before the
//     parent ever touches it; no SIGSTOP is raised, the child stops on
//     the SIGTRAP that follows execve.
//
//   - Run (pump_linux.go) is the event pump: it consumes the root's
//     initial post-execve stop, installs PTRACE_O_TRACE{FORK,VFORK,CLONE,EXIT}
//     (plus PTRACE_O_EXITKILL), and then loops a non-blocking drain pass
//     over every alive pid, dispatching each observed status change
//     (still running, exited, signaled, pre-exit, new descendant,
//     ordinary signal-stop) until every known pid is exited or detached.
//
// # Pre-exit window
//
// PTRACE_EVENT_EXIT fires while the tracee is stopped but its /proc entry
// is still valid — this is the only point at which its RSS can still be
// read. The pump reads RSS here, then either PTRACE_CONT's the tracee (if
// it is the root and the caller wants its eventual exit status) or
// PTRACE_DETACH's it immediately. A "no such process" error encountered
// while operating on a tracee in this window is expected (the tracee may
// die between the event and the read) and is absorbed by marking the
// record exited rather than treated as fatal.
//
// # Single OS thread
//
// ptrace relationships are per-OS-thread in the kernel: every ptrace
// syscall for a given tracee must originate from the thread that attached
// to it. Run locks its goroutine to its OS thread for its entire
// lifetime and never spawns a goroutine on the ptrace path.
package tracer
