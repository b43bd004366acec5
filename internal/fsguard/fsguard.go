// Package fsguard performs the symlink-safe filesystem work for the keytab
// tree. Paths are treated as hostile: every no-follow check runs before any
// follow-capable call, and anything verified on a path is verified again on
// an open handle before it is used, so a concurrent path swap cannot
// redirect a privileged operation.
package fsguard

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/fermitools/kcron/internal/caps"
	"github.com/fermitools/kcron/internal/keytab"
)

var (
	ErrSymlink    = errors.New("path is a symbolic link")
	ErrNotDir     = errors.New("path is not a directory")
	ErrNotRegular = errors.New("path is not a regular file")
	ErrDescriptor = errors.New("descriptor number drifted")
)

// Guard runs filesystem operations with privilege brackets taken from gate.
type Guard struct {
	gate   caps.Gate
	dirFD  int
	fileFD int
}

func New(gate caps.Gate) *Guard {
	return &Guard{gate: gate}
}

// RequireDescriptors pins the descriptor numbers CreateFile's directory
// and file handles must land on. A hardened caller runs under a syscall
// filter whose argument predicates name fixed descriptors; with the pin
// set, a drifted allocation fails with ErrDescriptor instead of running
// into the filter, which would kill the process without a message.
func (g *Guard) RequireDescriptors(dir, file int) {
	g.dirFD = dir
	g.fileFD = file
}

// ValidateDirectory checks that path is a directory and not a symbolic
// link. The no-follow stat runs first; if it cannot be obtained or reports
// a link, no follow-capable stat is ever issued for the path.
func (g *Guard) ValidateDirectory(path string) error {
	var lst unix.Stat_t
	if err := unix.Lstat(path, &lst); err != nil {
		return fmt.Errorf("cannot lstat %s: %w", path, err)
	}
	if lst.Mode&unix.S_IFMT == unix.S_IFLNK {
		return fmt.Errorf("%w: %s", ErrSymlink, path)
	}

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return fmt.Errorf("%w: %s", ErrNotDir, path)
	}
	return nil
}

// Exists reports whether path exists at all. The stat runs under an
// ownership-bypass bracket as the surrounding directories may not be
// readable for the invoking user.
func (g *Guard) Exists(path string) (bool, error) {
	bracket, err := g.gate.Acquire(caps.BypassOwnership)
	if err != nil {
		return false, err
	}

	var st unix.Stat_t
	statErr := unix.Stat(path, &st)

	if err := bracket.Release(); err != nil {
		return false, err
	}

	switch {
	case statErr == nil:
		return true, nil
	case errors.Is(statErr, unix.ENOENT):
		return false, nil
	default:
		return false, fmt.Errorf("cannot stat %s: %w", path, statErr)
	}
}

// EnsureDirectory creates path as a 0700 directory owned by uid:gid if it
// is missing. An existing directory is left untouched, an existing
// non-directory is an error. The created directory is re-opened and
// verified through its handle before being chowned, so a path swapped in
// between mkdir and use is caught.
func (g *Guard) EnsureDirectory(path string, uid, gid int) error {
	var lst unix.Stat_t
	if err := unix.Lstat(path, &lst); err == nil {
		switch lst.Mode & unix.S_IFMT {
		case unix.S_IFLNK:
			return fmt.Errorf("%w: %s", ErrSymlink, path)
		case unix.S_IFDIR:
			return nil
		default:
			return fmt.Errorf("%w: %s", ErrNotDir, path)
		}
	} else if !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("cannot lstat %s: %w", path, err)
	}

	// The parent is not necessarily writable or even searchable for the
	// invoking user, hence the ownership bypass around mkdir and open.
	bracket, err := g.gate.Acquire(caps.ChangeOwnership, caps.BypassOwnership)
	if err != nil {
		return err
	}

	if err := unix.Mkdir(path, keytab.DirMode); err != nil {
		bracket.Release()
		return fmt.Errorf("cannot mkdir %s: %w", path, err)
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		bracket.Release()
		return fmt.Errorf("cannot open created directory %s: %w", path, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		bracket.Release()
		return fmt.Errorf("cannot fstat created directory %s: %w", path, err)
	}

	if err := bracket.Release(); err != nil {
		unix.Close(fd)
		return err
	}

	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		unix.Close(fd)
		return fmt.Errorf("%w: %s", ErrNotDir, path)
	}

	bracket, err = g.gate.Acquire(caps.ChangeOwnership, caps.BypassOwnership)
	if err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Fchown(fd, uid, gid); err != nil {
		unix.Close(fd)
		bracket.Release()
		return fmt.Errorf("cannot chown %d:%d %s: %w", uid, gid, path, err)
	}
	if err := bracket.Release(); err != nil {
		unix.Close(fd)
		return err
	}

	return unix.Close(fd)
}

// CreateFile creates name below dir with the permitted mode, delegates the
// content to fill and normalizes mode and ownership afterwards.
//
// Descriptor postcondition: with only the standard streams open, the
// directory handle lands on descriptor 3 and the file on descriptor 4.
// The syscall filter's argument predicates are written against exactly
// these numbers; RequireDescriptors turns the expectation into a checked
// error.
func (g *Guard) CreateFile(dir, name string, uid, gid int, fill func(*os.File) error) error {
	bracket, err := g.gate.Acquire(caps.BypassOwnership)
	if err != nil {
		return err
	}

	var lst unix.Stat_t
	if err := unix.Lstat(dir, &lst); err != nil {
		bracket.Release()
		return fmt.Errorf("cannot lstat %s: %w", dir, err)
	}
	if lst.Mode&unix.S_IFMT == unix.S_IFLNK {
		bracket.Release()
		return fmt.Errorf("%w: %s", ErrSymlink, dir)
	}

	dirFd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		bracket.Release()
		return fmt.Errorf("cannot open %s: %w", dir, err)
	}
	if g.dirFD != 0 && dirFd != g.dirFD {
		unix.Close(dirFd)
		bracket.Release()
		return fmt.Errorf("%w: directory handle on fd %d, pinned to %d", ErrDescriptor, dirFd, g.dirFD)
	}

	var dst unix.Stat_t
	if err := unix.Fstat(dirFd, &dst); err != nil {
		unix.Close(dirFd)
		bracket.Release()
		return fmt.Errorf("cannot fstat %s: %w", dir, err)
	}

	if err := bracket.Release(); err != nil {
		unix.Close(dirFd)
		return err
	}

	if dst.Mode&unix.S_IFMT != unix.S_IFDIR {
		unix.Close(dirFd)
		return fmt.Errorf("%w: %s", ErrNotDir, dir)
	}

	// O_NOFOLLOW only covers the leaf, but every other component was just
	// verified through the directory handle. O_CLOEXEC keeps the handle
	// from leaking across an exec this process will never perform anyway.
	fd, err := unix.Openat(dirFd, name, unix.O_WRONLY|unix.O_CREAT|unix.O_NOFOLLOW|unix.O_CLOEXEC, keytab.FileMode)
	unix.Close(dirFd)
	if err != nil {
		return fmt.Errorf("cannot create %s below %s: %w", name, dir, err)
	}
	if g.fileFD != 0 && fd != g.fileFD {
		unix.Close(fd)
		return fmt.Errorf("%w: keytab handle on fd %d, pinned to %d", ErrDescriptor, fd, g.fileFD)
	}
	f := os.NewFile(uintptr(fd), name)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		f.Close()
		return fmt.Errorf("cannot fstat %s: %w", name, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		f.Close()
		return fmt.Errorf("%w: %s", ErrNotRegular, name)
	}

	if err := fill(f); err != nil {
		f.Close()
		return err
	}

	if err := g.normalize(f, &st, uid, gid); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// normalize forces the permitted mode unconditionally and the target
// ownership only when it differs; a same-owner chown would be a no-op and
// raising privilege for it buys nothing.
func (g *Guard) normalize(f *os.File, st *unix.Stat_t, uid, gid int) error {
	fd := int(f.Fd())

	if err := unix.Fchmod(fd, keytab.FileMode); err != nil {
		return fmt.Errorf("cannot chmod %#o %s: %w", keytab.FileMode, f.Name(), err)
	}

	if st.Uid == uint32(uid) && st.Gid == uint32(gid) {
		return nil
	}

	bracket, err := g.gate.Acquire(caps.ChangeOwnership, caps.BypassOwnership)
	if err != nil {
		return err
	}
	if err := unix.Fchown(fd, uid, gid); err != nil {
		bracket.Release()
		return fmt.Errorf("cannot chown %d:%d %s: %w", uid, gid, f.Name(), err)
	}
	return bracket.Release()
}
