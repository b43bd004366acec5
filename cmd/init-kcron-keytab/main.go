// init-kcron-keytab provisions an empty client keytab for the invoking
// user below a fixed base directory. It is meant to be installed with the
// CAP_CHOWN and CAP_DAC_OVERRIDE file capabilities (or setuid root) and
// sheds everything it does not need before touching the filesystem.
//
// On success the resolved keytab path is the only line on stdout. All
// diagnostics go to stderr; this is the only place that terminates the
// process.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/fermitools/kcron/internal/caps"
	"github.com/fermitools/kcron/internal/fsguard"
	"github.com/fermitools/kcron/internal/hardening"
	"github.com/fermitools/kcron/internal/keytab"
)

func init() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetOutput(os.Stderr)
}

func main() {
	// The real uid and gid are captured once; a username is deliberately
	// never consulted, it could change under us.
	uid, gid := os.Getuid(), os.Getgid()

	if err := hardening.Apply(hardening.Options{BaseDir: keytab.BaseDir}); err != nil {
		log.WithError(err).Fatal("Cannot harden process")
	}

	guard := fsguard.New(caps.NewProcessGate())
	guard.RequireDescriptors(hardening.DirFD, hardening.KeytabFD)

	if err := guard.ValidateDirectory(keytab.BaseDir); err != nil {
		log.WithError(err).Fatal("Client keytab base directory is unusable, contact your admin")
	}

	userDir := keytab.UserDir(keytab.BaseDir, uid)
	if err := guard.EnsureDirectory(userDir, uid, gid); err != nil {
		log.WithError(err).Fatal("Cannot prepare user keytab directory")
	}

	keytabPath := keytab.Path(keytab.BaseDir, uid)
	exists, err := guard.Exists(keytabPath)
	if err != nil {
		log.WithError(err).Fatal("Cannot check for an existing keytab")
	}

	if !exists {
		if err := guard.CreateFile(userDir, keytab.FileName, uid, gid, keytab.WriteEmptyHeader); err != nil {
			log.WithError(err).Fatal("Cannot create keytab")
		}
	}

	fmt.Println(keytabPath)
}
