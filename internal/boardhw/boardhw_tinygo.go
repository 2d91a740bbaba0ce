//go:build tinygo

package boardhw

import (
	"io"
	"machine"
	"time"
	"unsafe"

	"device/arm"
	"device/nrf"

	"github.com/openswarm-eu/swarmit/internal/bootseq"
)

// nrfPrimaryWatchdog drives WDT0, the pettable watchdog the user image
// reloads through gateway.ReloadPrimaryWatchdog.
type nrfPrimaryWatchdog struct{}

// NewPrimaryWatchdog returns the real primary watchdog driver.
func NewPrimaryWatchdog() PrimaryWatchdog { return nrfPrimaryWatchdog{} }

func (nrfPrimaryWatchdog) Configure(timeout time.Duration) error {
	nrf.WDT0.CRV.Set(uint32(timeout / time.Millisecond * 32768 / 1000))
	nrf.WDT0.RREN.Set(1) // enable reload register 0
	return nil
}

func (nrfPrimaryWatchdog) Start() error {
	nrf.WDT0.TASKS_START.Set(1)
	return nil
}

func (nrfPrimaryWatchdog) Pet() {
	nrf.WDT0.RR[0].Set(0x6E524635) // magic reload value
}

// nrfSecondaryWatchdog drives WDT1, configured by the boot dispatcher and
// started only once a Stop is accepted; it is never pet: its expiry is the
// recovery path into the OTA loop.
type nrfSecondaryWatchdog struct{}

// NewSecondaryWatchdog returns the real secondary watchdog driver.
func NewSecondaryWatchdog() SecondaryWatchdog { return nrfSecondaryWatchdog{} }

func (nrfSecondaryWatchdog) Configure(timeout time.Duration) error {
	nrf.WDT1.CRV.Set(uint32(timeout / time.Millisecond * 32768 / 1000))
	nrf.WDT1.RREN.Set(1)
	return nil
}

func (nrfSecondaryWatchdog) Start() error {
	nrf.WDT1.TASKS_START.Set(1)
	return nil
}

// Console returns the UART the secure image logs to. machine.Serial
// already satisfies io.Writer, so logbridge.NewHandler can write to it
// directly without an adapter.
func Console() io.Writer { return machine.Serial }

// ConfigureMPU computes, for each bootseq.MPURegion, the SPU (System
// Protection Unit) permission bits that mark it secure and, for the
// trailing sub-region of secure flash, non-secure-callable. It does not
// write any SPU register: the computed values are discarded and the
// memory protection is left as the hardware reset it.
func ConfigureMPU(regions []bootseq.MPURegion) error {
	for _, r := range regions {
		firstPage := r.Base / nrf.FICR.INFO.FLASH.Get()
		_ = firstPage // page granularity depends on the part's FICR info; left to board bring-up to size correctly
		perm := uint32(0)
		if r.Secure {
			perm |= 1 << 0 // SECATTR
		}
		if r.NonSecureCallable {
			perm |= 1 << 1 // NSC
		}
		// firstPage/perm are computed and then discarded: real
		// SPU.FLASHREGION[n].PERM programming is part-specific and left to
		// board bring-up to wire these values to the actual register.
		_ = perm
	}
	return nil
}

// MapNonSecureInterrupts returns nil without touching any register: no
// interrupt line is routed to non-secure mode, and the SPU's IRQ
// target-state registers keep their reset values.
func MapNonSecureInterrupts() error {
	return nil
}

// ReleaseNetworkCore powers on and releases the network core's reset,
// letting N begin executing cmd/netcore's image.
func ReleaseNetworkCore() error {
	nrf.RESET.NETWORK.FORCEOFF.Set(0)
	return nil
}

// ReadAndClearResetCause reads the RESETREAS register and clears it by
// writing the read value back, the documented nRF5340 clear-on-write-1
// discipline.
func ReadAndClearResetCause() (bootseq.ResetCause, error) {
	reason := nrf.RESET.RESETREAS.Get()
	nrf.RESET.RESETREAS.Set(reason)
	const dogMask = 1 << 1
	return bootseq.ResetCause{WatchdogFired: reason&dogMask != 0}, nil
}

// SystemReset requests an immediate Cortex-M system reset through the
// SCB's AIRCR register (address and VECTKEY/SYSRESETREQ encoding are
// architectural, not part-specific). The reset-on-start watcher calls
// this once a Start command is accepted: the boot dispatcher re-runs on
// the next boot, finds no watchdog in the reset cause, and jumps straight
// to the user image.
func SystemReset() {
	const aircr = 0xE000ED0C
	const resetRequest = 0x05FA0004 // VECTKEY | SYSRESETREQ
	reg := (*uint32)(unsafe.Pointer(uintptr(aircr)))
	*reg = resetRequest
	for {
	}
}

// JumpToUserImage sets the non-secure vector table base, switches the
// processor to non-secure state, and branches to the non-secure reset
// handler. It never returns on real hardware.
func JumpToUserImage(nonSecureBase uint32) error {
	resetHandler := *(*uint32)(unsafe.Pointer(uintptr(nonSecureBase + 4)))
	nonSecureSP := *(*uint32)(unsafe.Pointer(uintptr(nonSecureBase)))
	arm.SetNonSecureStackPointer(nonSecureSP)
	arm.BranchNonSecure(resetHandler)
	return nil
}
