// Package config holds the parsed command-line configuration record that
// cmd/rsstrace hands to the trace engine, and the pflag plumbing used to
// populate it.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// ErrUsage indicates a malformed or empty invocation: no command vector
// was supplied. Reported to stderr with a non-zero exit before any
// process is spawned.
var ErrUsage = errors.New("config: no command was given")

// Config is the parsed configuration record handed to the trace engine.
type Config struct {
	Command      []string
	Output       string
	ReturnResult bool
	Debug        bool
}

// DefaultOutput returns "<binary-name>.json" in the current working
// directory, where <binary-name> is derived from argv[0].
func DefaultOutput() string {
	base := filepath.Base(os.Args[0])
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ".json"
}

// returnResultValue is a pflag.Value that always assigns a fixed boolean
// to a shared target, regardless of its string argument. Binding two
// instances of it (one fixed to true, one fixed to false) to two
// differently-named flags that write the same *bool gives pflag's normal
// left-to-right argument processing "last occurrence wins" semantics for
// free: whichever of -r/--return-result or --no-return-result appears
// last on the command line is the one whose Set call runs last.
type returnResultValue struct {
	target *bool
	fixed  bool
}

func (v *returnResultValue) String() string {
	if v.target == nil {
		return "false"
	}
	if *v.target {
		return "true"
	}
	return "false"
}

func (v *returnResultValue) Set(string) error {
	*v.target = v.fixed
	return nil
}

func (v *returnResultValue) Type() string { return "bool" }

// BindReturnResult registers -r/--return-result and --no-return-result on
// fs, both writing to the same bool, with last-on-the-command-line
// winning.
func BindReturnResult(fs *pflag.FlagSet, target *bool) {
	on := &returnResultValue{target: target, fixed: true}
	off := &returnResultValue{target: target, fixed: false}

	fs.VarP(on, "return-result", "r",
		"exit with the tracee's exit code (or 128+signal) once measurement completes")
	fs.Lookup("return-result").NoOptDefVal = "true"

	fs.Var(off, "no-return-result", "disable --return-result (last occurrence wins)")
	fs.Lookup("no-return-result").NoOptDefVal = "true"
}
