//go:build linux

package hardening

import (
	"fmt"
	"path/filepath"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"kernel.org/pub/linux/libs/security/libcap/psx"
)

// rulesetAttr mirrors struct landlock_ruleset_attr. The raw syscalls are
// used instead of go-landlock, whose ruleset type lacks the scoped field
// needed for ABI 6 (go-landlock issue #35).
type rulesetAttr struct {
	handledAccessFS  uint64
	handledAccessNet uint64
	scoped           uint64
}

// pathBeneathAttr mirrors struct landlock_path_beneath_attr.
type pathBeneathAttr struct {
	allowedAccess uint64
	parentFd      int32
	_             [4]byte
}

// landlockABI returns the kernel's Landlock ABI version, or 0 when the
// feature is unavailable.
func landlockABI() int {
	version, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		0, 0,
		unix.LANDLOCK_CREATE_RULESET_VERSION,
	)
	if errno != 0 {
		return 0
	}
	return int(version)
}

// handledAccessFS returns the filesystem access rights a ruleset for the
// given ABI version takes control of. The version 1 baseline is never
// reduced; newer versions only add bits.
func handledAccessFS(abi int) uint64 {
	access := uint64(unix.LANDLOCK_ACCESS_FS_EXECUTE |
		unix.LANDLOCK_ACCESS_FS_WRITE_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_DIR |
		unix.LANDLOCK_ACCESS_FS_REMOVE_DIR |
		unix.LANDLOCK_ACCESS_FS_REMOVE_FILE |
		unix.LANDLOCK_ACCESS_FS_MAKE_CHAR |
		unix.LANDLOCK_ACCESS_FS_MAKE_DIR |
		unix.LANDLOCK_ACCESS_FS_MAKE_REG |
		unix.LANDLOCK_ACCESS_FS_MAKE_SOCK |
		unix.LANDLOCK_ACCESS_FS_MAKE_FIFO |
		unix.LANDLOCK_ACCESS_FS_MAKE_BLOCK |
		unix.LANDLOCK_ACCESS_FS_MAKE_SYM)

	if abi >= 2 {
		access |= unix.LANDLOCK_ACCESS_FS_REFER
	}
	if abi >= 3 {
		access |= unix.LANDLOCK_ACCESS_FS_TRUNCATE
	}
	if abi >= 5 {
		access |= unix.LANDLOCK_ACCESS_FS_IOCTL_DEV
	}
	return access
}

// handledAccessNet returns the network access rights under control, ABI
// version 4 and up.
func handledAccessNet(abi int) uint64 {
	if abi < 4 {
		return 0
	}
	return unix.LANDLOCK_ACCESS_NET_BIND_TCP | unix.LANDLOCK_ACCESS_NET_CONNECT_TCP
}

// scopedAccess returns the IPC scoping bits, ABI version 6 and up.
func scopedAccess(abi int) uint64 {
	if abi < 6 {
		return 0
	}
	return unix.LANDLOCK_SCOPE_ABSTRACT_UNIX_SOCKET | unix.LANDLOCK_SCOPE_SIGNAL
}

// allowedAccess returns the narrower rights granted below the keytab tree:
// enough to list directories, create the per-uid directory and write the
// keytab, nothing more.
func allowedAccess(abi int) uint64 {
	access := uint64(unix.LANDLOCK_ACCESS_FS_WRITE_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_DIR |
		unix.LANDLOCK_ACCESS_FS_MAKE_DIR |
		unix.LANDLOCK_ACCESS_FS_MAKE_REG)
	if abi >= 3 {
		access |= unix.LANDLOCK_ACCESS_FS_TRUNCATE
	}
	return access
}

// restrictFilesystem confines the process to the subtree below baseDir's
// parent. A kernel without Landlock is left alone; a kernel that reports
// support but then fails mid-setup is not trusted and errors out.
func restrictFilesystem(baseDir string) error {
	abi := landlockABI()
	if abi <= 0 {
		log.Warn("Landlock is not supported, skipping filesystem sandbox")
		return nil
	}

	attr := rulesetAttr{
		handledAccessFS:  handledAccessFS(abi),
		handledAccessNet: handledAccessNet(abi),
		scoped:           scopedAccess(abi),
	}

	fd, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		uintptr(unsafe.Pointer(&attr)),
		unsafe.Sizeof(attr),
		0,
	)
	if errno != 0 {
		return fmt.Errorf("cannot create landlock ruleset for ABI %d: %w", abi, errno)
	}
	rulesetFd := int(fd)
	defer unix.Close(rulesetFd)

	anchor := filepath.Dir(baseDir)
	parentFd, err := unix.Open(anchor, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("cannot open landlock anchor %s: %w", anchor, err)
	}

	pathBeneath := pathBeneathAttr{
		allowedAccess: allowedAccess(abi),
		parentFd:      int32(parentFd),
	}
	_, _, errno = unix.Syscall6(
		unix.SYS_LANDLOCK_ADD_RULE,
		uintptr(rulesetFd),
		unix.LANDLOCK_RULE_PATH_BENEATH,
		uintptr(unsafe.Pointer(&pathBeneath)),
		0, 0, 0,
	)
	closeErr := unix.Close(parentFd)
	if errno != 0 {
		return fmt.Errorf("cannot add landlock rule below %s: %w", anchor, errno)
	}
	if closeErr != nil {
		return fmt.Errorf("cannot close landlock anchor: %w", closeErr)
	}

	// psx raises the syscall on every runtime thread; a plain syscall
	// would leave sibling threads unrestricted.
	if _, _, errno := psx.Syscall3(unix.SYS_LANDLOCK_RESTRICT_SELF, uintptr(rulesetFd), 0, 0); errno != 0 {
		return fmt.Errorf("cannot restrict process with landlock: %w", errno)
	}

	log.WithField("abi", abi).Debug("Applied Landlock ruleset")
	return nil
}
