// Package rpctest provides a scripted rpc.Executor for tests.
package rpctest

import (
	"context"
	"strings"
	"sync"

	"portalctl/src/rpc"
)

// Call is one recorded Execute invocation.
type Call struct {
	Agent   string
	Command string
	Kind    rpc.Kind
}

// Executor answers commands from Handler, or from Responses by prefix match
// when Handler is nil. Unmatched commands succeed with empty output.
type Executor struct {
	Handler   func(call Call) (rpc.Result, error)
	Responses map[string]string

	mu    sync.Mutex
	calls []Call
}

func (e *Executor) Execute(_ context.Context, agentID, command string, kind rpc.Kind) (rpc.Result, error) {
	call := Call{Agent: agentID, Command: command, Kind: kind}
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()

	if e.Handler != nil {
		return e.Handler(call)
	}
	for prefix, out := range e.Responses {
		if strings.HasPrefix(command, prefix) {
			return rpc.Result{OK: true, Output: out}, nil
		}
	}
	return rpc.Result{OK: true}, nil
}

// Calls returns a copy of the recorded calls.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Commands returns just the command strings, in order.
func (e *Executor) Commands() []string {
	var out []string
	for _, c := range e.Calls() {
		out = append(out, c.Command)
	}
	return out
}

// Failure builds the error Execute returns for success=false.
func Failure(agentID, message string) (rpc.Result, error) {
	return rpc.Result{Error: message}, &rpc.Error{Kind: rpc.ErrCommandFailed, Op: "execute", Agent: agentID, Message: message}
}
