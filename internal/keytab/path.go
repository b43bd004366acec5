// Package keytab knows where a user's client keytab lives and how an empty
// one looks on disk.
package keytab

import (
	"path/filepath"
	"strconv"
)

// BaseDir is the client keytab base directory. It is fixed at build time;
// packagers override it with
//
//	-ldflags "-X github.com/fermitools/kcron/internal/keytab.BaseDir=..."
var BaseDir = "/var/kerberos/krb5/user"

const (
	// FileName is the only filename ever created below a user directory.
	FileName = "client.keytab"

	// DirMode and FileMode are the sole permitted permission bits for the
	// user directory and the keytab file.
	DirMode  = 0o700
	FileMode = 0o600
)

// UserDir returns the per-user keytab directory below base. The path
// component is the decimal real uid: uids are immutable for the process
// lifetime, while a username lookup could race against name-service
// changes.
func UserDir(base string, uid int) string {
	return filepath.Join(base, strconv.Itoa(uid))
}

// Path returns the full client keytab path for uid below base.
func Path(base string, uid int) string {
	return filepath.Join(UserDir(base, uid), FileName)
}
