// Package hardening turns the process into a minimal-attack-surface
// environment before any keytab logic runs: resource limits, a Landlock
// filesystem sandbox, a seccomp syscall allowlist and a final capability
// drop, in that order. Every step is one-way; there is no unwinding and no
// partially hardened continuation.
package hardening

// Descriptor numbers the syscall filter's argument predicates are written
// against. They hold because the standard streams occupy 0 through 2 and
// fsguard opens the directory handle first and the keytab second, with
// nothing else open in between. The NOFILE limit of 5 pins this bound,
// and fsguard's descriptor pin verifies it at runtime.
const (
	DirFD    = 3
	KeytabFD = 4
)

// Options configures the hardening pipeline.
type Options struct {
	// BaseDir is the client keytab base directory. The filesystem sandbox
	// is scoped to its parent so the sibling structure stays reachable for
	// the per-uid subdirectories.
	BaseDir string
}
