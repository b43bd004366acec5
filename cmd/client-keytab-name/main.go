// client-keytab-name prints the client keytab path for the invoking user.
// It needs no privilege and touches no files; callers use it to learn
// where init-kcron-keytab would place the keytab without creating it.
package main

import (
	"fmt"
	"os"

	"github.com/fermitools/kcron/internal/keytab"
)

func main() {
	fmt.Println(keytab.Path(keytab.BaseDir, os.Getuid()))
}
