// Package core holds the process-wide state and shared contracts that every
// other package in dune depends on: the isolate's process state record, the
// engine configuration, and the small interfaces used to keep the engine
// adapter, event loop, and bindings decoupled from one another.
package core

import (
	"os"
	"sync"
	"time"
)

// ProcessState is the process-wide mutable state record carried by the
// isolate context (spec §3: "a process-wide mutable state record (CWD,
// argv, environment snapshot, command-line flags, start time, PID)").
// Exactly one exists per process and it lives for the process lifetime.
type ProcessState struct {
	mu sync.RWMutex

	CWD       string
	Argv      []string
	Env       map[string]string
	StartTime time.Time
	PID       int

	DuneDir  string
	NoColor  bool
	Unstable bool
	ExitCode int
}

// NewProcessState snapshots the current OS process into a ProcessState.
// argv excludes the binary name (os.Args[1:]); the environment snapshot is
// taken once at boot, not re-read — scripts observe it via the `process`
// binding's env table, not via live os.Environ() calls.
func NewProcessState(argv []string, duneDir string) *ProcessState {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	env := make(map[string]string, len(os.Environ()))
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return &ProcessState{
		CWD:       cwd,
		Argv:      argv,
		Env:       env,
		StartTime: time.Now(),
		PID:       os.Getpid(),
		DuneDir:   duneDir,
		NoColor:   env["NO_COLOR"] != "",
	}
}

// SetExitCode records the code `exit`/`beforeExit` handling should return.
func (p *ProcessState) SetExitCode(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ExitCode = code
}

// GetExitCode reads the currently recorded exit code.
func (p *ProcessState) GetExitCode() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ExitCode
}
