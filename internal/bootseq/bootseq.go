// Package bootseq implements the boot dispatcher as an ordered sequence
// of injectable hooks, so the dispatch decision (stay in S's OTA loop vs.
// jump into the user image) is host-testable without ever touching an
// MPU register or a real reset-cause bit.
//
// Grounded on the explicit, numbered setup-call init sequencing common
// to small firmware main loops, generalized from a flat function body
// into a struct of hooks so the dispatch branch can be exercised by a
// table of fake reset causes.
package bootseq

import "fmt"

// ResetCause is the hardware reset-cause register content relevant to
// dispatch: whether either watchdog fired.
type ResetCause struct {
	WatchdogFired bool
}

// MPURegion describes one flash or RAM region and its security
// attribute, mirroring the layout the dispatcher configures in step 2.
type MPURegion struct {
	Name           string
	Base, Size     uint32
	Secure         bool
	NonSecureCallable bool
}

// Hooks are the side-effecting steps of the boot sequence. Each is called
// in order; a host-side test supplies fakes, the real cmd/supervisor
// entry point supplies hardware-backed implementations.
type Hooks struct {
	ConfigureSecondaryWatchdog func() error
	ConfigureMPU               func([]MPURegion) error
	MapNonSecureInterrupts     func() error
	ReleaseNetworkCore         func() error
	WaitNetReady               func() error
	InitRadio                  func() error
	ReadAndClearResetCause     func() (ResetCause, error)
	EnterOtaLoop               func() error
	JumpToUserImage            func() error
}

// MemoryMap is the region table configured in step 2: secure flash,
// secure RAM, and the non-secure-callable gateway sub-region.
func MemoryMap(secureFlashSize, secureRAMSize, nonSecureCallableSize uint32) []MPURegion {
	return []MPURegion{
		{Name: "secure-flash", Base: 0, Size: secureFlashSize - nonSecureCallableSize, Secure: true},
		{Name: "non-secure-callable", Base: secureFlashSize - nonSecureCallableSize, Size: nonSecureCallableSize, Secure: true, NonSecureCallable: true},
		{Name: "secure-ram", Base: 0, Size: secureRAMSize, Secure: true},
	}
}

// Run executes the boot dispatcher sequence in order, returning as soon
// as any step fails. It reports which terminal branch it took.
func Run(h Hooks, regions []MPURegion) (wentToOtaLoop bool, err error) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"configure secondary watchdog", h.ConfigureSecondaryWatchdog},
		{"configure MPU", func() error { return h.ConfigureMPU(regions) }},
		{"map non-secure interrupts", h.MapNonSecureInterrupts},
		{"release network core", h.ReleaseNetworkCore},
		{"wait for net_ready", h.WaitNetReady},
		{"init radio", h.InitRadio},
	}
	for _, s := range steps {
		if s.fn == nil {
			continue
		}
		if err := s.fn(); err != nil {
			return false, fmt.Errorf("bootseq: %s: %w", s.name, err)
		}
	}

	cause, err := h.ReadAndClearResetCause()
	if err != nil {
		return false, fmt.Errorf("bootseq: read reset cause: %w", err)
	}

	if cause.WatchdogFired {
		if h.EnterOtaLoop != nil {
			if err := h.EnterOtaLoop(); err != nil {
				return true, fmt.Errorf("bootseq: enter OTA loop: %w", err)
			}
		}
		return true, nil
	}

	if h.JumpToUserImage != nil {
		// The jump is one-way: a real implementation never returns from
		// this call. Hooks used in tests return nil to let Run complete.
		if err := h.JumpToUserImage(); err != nil {
			return false, fmt.Errorf("bootseq: jump to user image: %w", err)
		}
	}
	return false, nil
}
