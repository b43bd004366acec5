// Package caps brackets Linux capability tokens around single privileged
// operations. A Bracket is acquired immediately before the one syscall that
// needs it and released on every exit path; nothing unrelated may run while
// a bracket is open. The whole design assumes a single goroutine touching
// the filesystem, as the capability state is process-wide.
package caps

import (
	"errors"
	"fmt"
)

// Token names one of the capability tokens this tool ever requests.
type Token int

const (
	// ChangeOwnership maps to CAP_CHOWN.
	ChangeOwnership Token = iota
	// BypassOwnership maps to CAP_DAC_OVERRIDE.
	BypassOwnership
)

func (t Token) String() string {
	switch t {
	case ChangeOwnership:
		return "change-ownership"
	case BypassOwnership:
		return "bypass-ownership-checks"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// ErrNoTokens is returned when a bracket is requested without any tokens.
var ErrNoTokens = errors.New("no capability tokens requested")

// Gate hands out privilege brackets. ProcessGate manipulates the real
// process capability sets; NopGate serves unprivileged flows and tests.
type Gate interface {
	Acquire(tokens ...Token) (*Bracket, error)
	DropAll() error
}

// Bracket is an open privilege bracket. Release clears the process's
// capability sets back to empty and is safe to call more than once.
type Bracket struct {
	release func() error
	done    bool
}

func (b *Bracket) Release() error {
	if b == nil || b.done {
		return nil
	}
	b.done = true
	return b.release()
}

// NopGate hands out brackets that change nothing. It backs flows that run
// without elevated rights, where every operation either succeeds on the
// caller's own permissions or fails like any unprivileged process would.
type NopGate struct{}

func (NopGate) Acquire(tokens ...Token) (*Bracket, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	return &Bracket{release: func() error { return nil }}, nil
}

func (NopGate) DropAll() error { return nil }
