//go:build !linux

package hardening

import (
	"runtime"

	log "github.com/sirupsen/logrus"
)

// Apply has nothing to harden without Linux capabilities, Landlock and
// seccomp.
func Apply(opts Options) error {
	log.Warnf("No hardening available for %s/%s", runtime.GOOS, runtime.GOARCH)
	return nil
}
