package keytab

import (
	"errors"
	"fmt"
	"os"
)

// An empty keytab is nothing but these two header bytes. MIT Kerberos
// tooling (ktutil, kadmin) accepts the result as a valid keytab holding no
// entries.
const (
	versionByte byte = 0x05
	formatByte  byte = 0x02
)

var (
	ErrReservedDescriptor = errors.New("keytab descriptor is a standard stream")
	ErrPartialWrite       = errors.New("partial write to keytab")
)

// WriteEmptyHeader writes the two-byte keytab header to f and syncs it to
// disk before reporting success. Descriptors 0 through 2 are rejected so a
// misdirected handle can never spill onto the standard streams. A write
// answering anything but exactly one byte is an error, never retried.
func WriteEmptyHeader(f *os.File) error {
	if f == nil {
		return errors.New("keytab file handle is nil")
	}
	if fd := f.Fd(); fd <= 2 {
		return fmt.Errorf("%w: fd %d", ErrReservedDescriptor, fd)
	}

	for _, b := range []byte{versionByte, formatByte} {
		n, err := f.Write([]byte{b})
		if err != nil {
			return fmt.Errorf("cannot write keytab header byte %#02x: %w", b, err)
		}
		if n != 1 {
			return fmt.Errorf("%w: %d bytes instead of 1 for %#02x", ErrPartialWrite, n, b)
		}
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("cannot sync keytab: %w", err)
	}
	return nil
}
