package tracer

import "errors"

var (
	// ErrSpawn indicates failure to fork or to replace the child image.
	ErrSpawn = errors.New("tracer: failed to spawn tracee")

	// ErrTraceControl indicates an unexpected kernel error on a trace
	// operation. Recoverable instances (ESRCH in the pre-exit window) are
	// absorbed inside the event pump and never surface as this error;
	// only genuinely unexpected kernel errors are wrapped in it.
	ErrTraceControl = errors.New("tracer: trace control failed")
)
