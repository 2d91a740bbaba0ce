// Package boardhw wires the secure-side peripherals cmd/supervisor's
// TinyGo entry point owns directly: the primary and secondary watchdogs,
// the UART console, and reset-cause register access. This mirrors the
// GPIO-owning-main-loop peripheral style common in small TinyGo
// firmware, generalized here to the set of peripherals S, specifically,
// must not share with the user image.
//
// Non-hardware builds get fakes good enough to exercise the boot/
// supervisor wiring in tests; cmd/supervisor links against
// boardhw_tinygo.go for the real peripherals.
package boardhw

import "time"

// PrimaryWatchdog is pet by the user image via gateway.ReloadPrimaryWatchdog
// and, if not pet within its configured timeout, resets the device — the
// mechanism that recovers a hung user image without S's involvement.
type PrimaryWatchdog interface {
	Configure(timeout time.Duration) error
	Start() error
	Pet()
}

// SecondaryWatchdog has its timeout fixed during boot dispatch — real
// hardware cannot rewrite CRV once TASKS_START has fired — but is only
// started once S decides to tear a running user image down. It is never
// pet afterward: its expiry forces a hardware reset, and the reset cause
// that reset leaves behind is how the boot dispatcher knows to re-enter
// the OTA loop on the next boot instead of jumping to the user image
// again.
type SecondaryWatchdog interface {
	Configure(timeout time.Duration) error
	Start() error
}

// NoopWatchdog satisfies both PrimaryWatchdog and SecondaryWatchdog without
// touching hardware, for host-side tests of the boot/supervisor wiring.
type NoopWatchdog struct{}

func (NoopWatchdog) Configure(time.Duration) error { return nil }
func (NoopWatchdog) Start() error                  { return nil }
func (NoopWatchdog) Pet()                          {}
