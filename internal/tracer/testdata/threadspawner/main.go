// Command threadspawner is a tracer integration-test fixture. Run
// directly, it spawns ten real OS threads and joins them (scenario 5 of
// the tracer suite: a root that spawns ten threads). Run with -fork, it
// instead forks a single child that does the same (scenario 6: a forked
// child that itself spawns ten threads), mirroring
// original_source/examples/fork_threads.rs's fire-and-forget fork.
package main

import (
	"flag"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

const threadCount = 10

func main() {
	fork := flag.Bool("fork", false, "fork one child that spawns the threads, instead of spawning them here")
	flag.Parse()

	if *fork {
		forkAndSpawn()
		return
	}
	spawnThreads()
}

// forkAndSpawn execs a copy of this same binary (without -fork) as a
// child and returns without waiting on it, the same shape as the
// upstream Rust fixture: the parent does not join the child, it only
// needs to exist long enough for the kernel to report the fork.
func forkAndSpawn() {
	self, err := os.Executable()
	if err != nil {
		panic(err)
	}
	cmd := exec.Command(self)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		panic(err)
	}
}

// spawnThreads starts threadCount goroutines, each pinned to its own OS
// thread for the duration of a short sleep. A plain goroutine does not
// generate a PTRACE_EVENT_CLONE — only a real clone(2) for a new kernel
// thread does — so each worker locks itself to its OS thread before
// doing anything else, forcing the Go runtime to hand it a fresh M
// rather than multiplex it onto an existing one.
func spawnThreads() {
	var wg sync.WaitGroup
	wg.Add(threadCount)
	for i := 0; i < threadCount; i++ {
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			time.Sleep(50 * time.Millisecond)
		}()
	}
	wg.Wait()
}
