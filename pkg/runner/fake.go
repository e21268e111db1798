package runner

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"sync"
)

// Fake is a Runner that records every command and answers with scripted
// results. It's used by the unit tests of the packages that drive external
// tools.
type Fake struct {
	// Handle produces the result for a command. If it's nil, every command
	// succeeds with empty output.
	Handle func(Command) (Result, error)

	calls []Command
	lock  sync.Mutex
}

// Run records cmd and returns the scripted response. Stdin is drained so
// that producers writing into a pipe never block, and the drained bytes are
// made available to Handle through cmd.Stdin.
func (f *Fake) Run(_ context.Context, cmd Command) (Result, error) {
	if cmd.Stdin != nil {
		input, err := ioutil.ReadAll(cmd.Stdin)
		if err != nil {
			return Result{}, err
		}
		cmd.Stdin = bytes.NewReader(input)
	}

	f.lock.Lock()
	f.calls = append(f.calls, cmd)
	f.lock.Unlock()

	if f.Handle == nil {
		return Result{}, nil
	}
	return f.Handle(cmd)
}

// Calls returns all recorded commands.
func (f *Fake) Calls() []Command {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Command(nil), f.calls...)
}

// CallsTo returns the recorded commands whose argv begins with prefix.
func (f *Fake) CallsTo(prefix ...string) []Command {
	var matching []Command
	for _, cmd := range f.Calls() {
		if HasPrefix(cmd, prefix...) {
			matching = append(matching, cmd)
		}
	}
	return matching
}

// HasPrefix returns whether the argv of cmd begins with prefix.
func HasPrefix(cmd Command, prefix ...string) bool {
	argv := cmd.Argv()
	if len(argv) < len(prefix) {
		return false
	}
	for i, arg := range prefix {
		if argv[i] != arg {
			return false
		}
	}
	return true
}

// Flag returns the value following `name` in the arguments of cmd.
func Flag(cmd Command, name string) (string, bool) {
	for i, arg := range cmd.Args {
		if arg == name && i+1 < len(cmd.Args) {
			return cmd.Args[i+1], true
		}
	}
	return "", false
}

// ReadStdin returns the input that was piped into a recorded command.
func ReadStdin(cmd Command) []byte {
	if cmd.Stdin == nil {
		return nil
	}
	seeker, ok := cmd.Stdin.(io.Seeker)
	if ok {
		seeker.Seek(0, io.SeekStart)
	}
	input, _ := ioutil.ReadAll(cmd.Stdin)
	return input
}
