//go:build !linux

package caps

// ProcessGate has no capability state to manage on platforms without
// Linux capabilities; it behaves like NopGate.
type ProcessGate struct {
	NopGate
}

func NewProcessGate() *ProcessGate {
	return &ProcessGate{}
}
