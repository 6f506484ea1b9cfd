package rpc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("rpc: invalid request")
	ErrNetwork        = errors.New("rpc: network error")
	ErrAgentNotFound  = errors.New("rpc: agent not found")
	ErrProtocol       = errors.New("rpc: protocol error")
	ErrCommandFailed  = errors.New("rpc: command failed")
)

// Error carries the context of a failed call. Kind is one of the sentinel
// errors above and is what errors.Is matches against.
type Error struct {
	Kind    error
	Op      string
	Agent   string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %v (status %d): %s", e.Op, e.Agent, e.Kind, e.Status, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Agent, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %s", e.Op, e.Agent, e.Kind, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
