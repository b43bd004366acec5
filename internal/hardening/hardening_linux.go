//go:build linux

package hardening

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/fermitools/kcron/internal/caps"
)

// rlimits is the fixed battery applied during hardening. FSIZE leaves
// generous margin over the two keytab header bytes, NOFILE bounds the
// descriptor numbers the syscall filter depends on, and DATA permits the
// single shared mapping the allocator likes to create.
var rlimits = []struct {
	resource int
	limit    uint64
	what     string
}{
	{unix.RLIMIT_NPROC, 0, "forking"},
	{unix.RLIMIT_FSIZE, 64, "file size"},
	{unix.RLIMIT_MEMLOCK, 0, "memory locking"},
	{unix.RLIMIT_MSGQUEUE, 0, "message queues"},
	{unix.RLIMIT_STACK, 1024, "stack size"},
	{unix.RLIMIT_NOFILE, 5, "open files"},
	{unix.RLIMIT_CPU, 4, "CPU time"},
	{unix.RLIMIT_DATA, 1 << 20, "data segment"},
}

// Apply runs the hardening pipeline. The order is load-bearing: Landlock
// must precede seccomp because installing it needs syscalls the filter
// does not list, and the capability drop comes last so the earlier steps
// may still use whatever the binary was granted. The first failing step
// aborts the sequence.
func Apply(opts Options) error {
	if err := nullStdin(); err != nil {
		return err
	}

	if err := unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("cannot disable core dumps: %w", err)
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("cannot set no_new_privs: %w", err)
	}

	os.Clearenv()

	for _, rl := range rlimits {
		limit := unix.Rlimit{Cur: rl.limit, Max: rl.limit}
		if err := unix.Setrlimit(rl.resource, &limit); err != nil {
			return fmt.Errorf("cannot limit %s to %d: %w", rl.what, rl.limit, err)
		}
	}

	if err := restrictFilesystem(opts.BaseDir); err != nil {
		return err
	}
	if err := installSyscallFilter(); err != nil {
		return err
	}

	return caps.NewProcessGate().DropAll()
}

// nullStdin reopens standard input on the null device.
func nullStdin() error {
	fd, err := unix.Open(os.DevNull, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", os.DevNull, err)
	}
	if err := unix.Dup3(fd, 0, 0); err != nil {
		unix.Close(fd)
		return fmt.Errorf("cannot redirect stdin to %s: %w", os.DevNull, err)
	}
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("cannot close %s: %w", os.DevNull, err)
	}
	return nil
}
