// Package deviceid exposes the 64-bit factory identity every device
// carries: the value compared against a command frame's destination id
// and stamped into every notification.
package deviceid

// Reader returns a device's 64-bit factory id.
type Reader interface {
	ID() uint64
}

// Fixed is a Reader backed by a constant, used on the host-testable path
// and wherever the id is already known (e.g. provisioned at build time).
type Fixed uint64

// ID returns the fixed id.
func (f Fixed) ID() uint64 { return uint64(f) }
