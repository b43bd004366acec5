//go:build linux && cgo

package hardening

import (
	"fmt"

	seccomp "github.com/seccomp/libseccomp-golang"
	log "github.com/sirupsen/logrus"

	"github.com/fermitools/kcron/internal/keytab"
)

// allowedSyscalls are permitted with any arguments. The first group is the
// keytab flow itself; the second is the thread, memory and signal
// management the Go runtime issues on its own behalf.
var allowedSyscalls = []string{
	"rt_sigreturn", "brk", "exit", "exit_group",
	"geteuid", "getuid", "getgid",
	"getdents64", "mkdir", "mkdirat", "fchown",
	"stat", "lstat", "fstat", "newfstatat", "openat",
	"capget", "capset",

	"futex", "mmap", "munmap", "mprotect", "madvise",
	"nanosleep", "sched_yield", "clock_gettime",
	"rt_sigaction", "rt_sigprocmask", "sigaltstack",
	"gettid", "getpid", "tgkill", "epoll_pwait", "read",
}

// installSyscallFilter loads a default-kill allowlist. Writes are pinned
// to the standard output streams and the two fixed keytab descriptors,
// closes to the keytab descriptors, fsync to the file, and fchmod to
// exactly the keytab descriptor with exactly the permitted mode. After the
// load an unlisted syscall kills the process instead of erroring.
func installSyscallFilter() error {
	if _, err := seccomp.GetAPI(); err != nil {
		log.Warn("No seccomp support is available, skipping syscall filter")
		return nil
	}

	filter, err := seccomp.NewFilter(seccomp.ActKillProcess)
	if err != nil {
		return fmt.Errorf("cannot initialize seccomp filter: %w", err)
	}
	defer filter.Release()

	if err := filter.SetTsync(true); err != nil {
		return fmt.Errorf("cannot enable seccomp thread sync: %w", err)
	}

	for _, name := range allowedSyscalls {
		if err := allow(filter, name); err != nil {
			return err
		}
	}

	for _, fd := range []uint64{1, 2, DirFD, KeytabFD} {
		if err := allowFd(filter, "write", fd); err != nil {
			return err
		}
	}
	for _, fd := range []uint64{DirFD, KeytabFD} {
		if err := allowFd(filter, "close", fd); err != nil {
			return err
		}
	}
	if err := allowFd(filter, "fsync", KeytabFD); err != nil {
		return err
	}

	// fchmod is pinned on both dimensions, descriptor and mode; any other
	// combination kills the process even though the syscall is listed.
	fchmod, err := seccomp.GetSyscallFromName("fchmod")
	if err != nil {
		return fmt.Errorf("cannot resolve syscall fchmod: %w", err)
	}
	fdCond, err := seccomp.MakeCondition(0, seccomp.CompareEqual, KeytabFD)
	if err != nil {
		return fmt.Errorf("cannot build fchmod descriptor condition: %w", err)
	}
	modeCond, err := seccomp.MakeCondition(1, seccomp.CompareEqual, uint64(keytab.FileMode))
	if err != nil {
		return fmt.Errorf("cannot build fchmod mode condition: %w", err)
	}
	if err := filter.AddRuleConditional(fchmod, seccomp.ActAllow, []seccomp.ScmpCondition{fdCond, modeCond}); err != nil {
		return fmt.Errorf("cannot allowlist fchmod: %w", err)
	}

	if err := filter.Load(); err != nil {
		return fmt.Errorf("cannot load seccomp filter: %w", err)
	}

	log.Debug("Applied seccomp allowlist")
	return nil
}

func allow(filter *seccomp.ScmpFilter, name string) error {
	sc, err := seccomp.GetSyscallFromName(name)
	if err != nil {
		return fmt.Errorf("cannot resolve syscall %s: %w", name, err)
	}
	if err := filter.AddRule(sc, seccomp.ActAllow); err != nil {
		return fmt.Errorf("cannot allowlist %s: %w", name, err)
	}
	return nil
}

func allowFd(filter *seccomp.ScmpFilter, name string, fd uint64) error {
	sc, err := seccomp.GetSyscallFromName(name)
	if err != nil {
		return fmt.Errorf("cannot resolve syscall %s: %w", name, err)
	}
	cond, err := seccomp.MakeCondition(0, seccomp.CompareEqual, fd)
	if err != nil {
		return fmt.Errorf("cannot build descriptor condition for %s: %w", name, err)
	}
	if err := filter.AddRuleConditional(sc, seccomp.ActAllow, []seccomp.ScmpCondition{cond}); err != nil {
		return fmt.Errorf("cannot allowlist %s for fd %d: %w", name, fd, err)
	}
	return nil
}
