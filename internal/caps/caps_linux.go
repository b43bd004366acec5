//go:build linux

package caps

import (
	"fmt"

	"kernel.org/pub/linux/libs/security/libcap/cap"
)

var capValues = map[Token]cap.Value{
	ChangeOwnership: cap.CHOWN,
	BypassOwnership: cap.DAC_OVERRIDE,
}

// ProcessGate brackets the calling process's capability sets. SetProc
// applies the state to every runtime thread through psx, so a bracket
// covers the whole process and not just the calling OS thread.
type ProcessGate struct{}

func NewProcessGate() *ProcessGate {
	return &ProcessGate{}
}

// Acquire resets the capability state and raises exactly the requested
// tokens in the permitted and effective flags, applied in one step. The
// reset is implicit: the target state is built from an empty set, so
// whatever was active before never survives into the bracket.
func (g *ProcessGate) Acquire(tokens ...Token) (*Bracket, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	vals := make([]cap.Value, 0, len(tokens))
	for _, token := range tokens {
		val, ok := capValues[token]
		if !ok {
			return nil, fmt.Errorf("unknown capability token %v", token)
		}
		vals = append(vals, val)
	}

	set := cap.NewSet()
	if err := set.SetFlag(cap.Permitted, true, vals...); err != nil {
		return nil, fmt.Errorf("cannot raise permitted flags: %w", err)
	}
	if err := set.SetFlag(cap.Effective, true, vals...); err != nil {
		return nil, fmt.Errorf("cannot raise effective flags: %w", err)
	}
	if err := set.SetProc(); err != nil {
		return nil, fmt.Errorf("cannot apply capability set %v: %w", tokens, err)
	}

	return &Bracket{release: clearProc}, nil
}

// DropAll clears the process's capability sets. Idempotent; an already
// empty state stays empty.
func (g *ProcessGate) DropAll() error {
	return clearProc()
}

// clearProc applies a freshly constructed empty set, wiping the permitted,
// effective and inheritable flags in one step.
func clearProc() error {
	if err := cap.NewSet().SetProc(); err != nil {
		return fmt.Errorf("cannot clear capability sets: %w", err)
	}
	return nil
}
