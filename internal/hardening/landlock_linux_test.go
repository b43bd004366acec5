//go:build linux

package hardening

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestHandledAccessFSMonotone(t *testing.T) {
	baseline := handledAccessFS(1)
	prev := uint64(0)

	for abi := 0; abi <= 6; abi++ {
		cur := handledAccessFS(abi)
		if cur&baseline != baseline {
			t.Fatalf("ABI %d dropped baseline bits: %#x", abi, cur)
		}
		if cur&prev != prev {
			t.Fatalf("ABI %d lost bits held at ABI %d", abi, abi-1)
		}
		prev = cur
	}
}

func TestVersionGatedAccessBits(t *testing.T) {
	tests := []struct {
		name string
		bits func(int) uint64
		mask uint64
		abi  int
	}{
		{"refer", handledAccessFS, unix.LANDLOCK_ACCESS_FS_REFER, 2},
		{"truncate", handledAccessFS, unix.LANDLOCK_ACCESS_FS_TRUNCATE, 3},
		{"ioctl-dev", handledAccessFS, unix.LANDLOCK_ACCESS_FS_IOCTL_DEV, 5},
		{"net", handledAccessNet, unix.LANDLOCK_ACCESS_NET_BIND_TCP | unix.LANDLOCK_ACCESS_NET_CONNECT_TCP, 4},
		{"scoping", scopedAccess, unix.LANDLOCK_SCOPE_ABSTRACT_UNIX_SOCKET | unix.LANDLOCK_SCOPE_SIGNAL, 6},
	}

	for _, test := range tests {
		if got := test.bits(test.abi - 1); got&test.mask != 0 {
			t.Fatalf("%s bits present below ABI %d: %#x", test.name, test.abi, got)
		}
		if got := test.bits(test.abi); got&test.mask != test.mask {
			t.Fatalf("%s bits missing at ABI %d: %#x", test.name, test.abi, got)
		}
		if got := test.bits(6); got&test.mask != test.mask {
			t.Fatalf("%s bits lost again at ABI 6: %#x", test.name, got)
		}
	}
}

func TestAllowedAccessSubsetOfHandled(t *testing.T) {
	for abi := 0; abi <= 6; abi++ {
		allowed, handled := allowedAccess(abi), handledAccessFS(abi)
		if extra := allowed &^ handled; extra != 0 {
			t.Fatalf("ABI %d allows unhandled bits: %#x", abi, extra)
		}
	}
}

func TestAllowedAccessIsNarrow(t *testing.T) {
	forbidden := uint64(unix.LANDLOCK_ACCESS_FS_EXECUTE |
		unix.LANDLOCK_ACCESS_FS_REMOVE_DIR |
		unix.LANDLOCK_ACCESS_FS_REMOVE_FILE |
		unix.LANDLOCK_ACCESS_FS_MAKE_SYM |
		unix.LANDLOCK_ACCESS_FS_MAKE_SOCK)

	for abi := 0; abi <= 6; abi++ {
		if got := allowedAccess(abi) & forbidden; got != 0 {
			t.Fatalf("ABI %d grants rights the keytab tree never needs: %#x", abi, got)
		}
	}
}
