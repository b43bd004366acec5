package keytab

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteEmptyHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, FileMode)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteEmptyHeader(f); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0x05, 0x02}) {
		t.Fatalf("keytab header is % x, expected 05 02", data)
	}
}

func TestWriteEmptyHeaderRejectsStandardStreams(t *testing.T) {
	for _, f := range []*os.File{os.Stdin, os.Stdout, os.Stderr} {
		err := WriteEmptyHeader(f)
		if !errors.Is(err, ErrReservedDescriptor) {
			t.Fatalf("fd %d: expected ErrReservedDescriptor, got %v", f.Fd(), err)
		}
	}
}

func TestWriteEmptyHeaderNilHandle(t *testing.T) {
	if err := WriteEmptyHeader(nil); err == nil {
		t.Fatal("expected an error for a nil handle")
	}
}
