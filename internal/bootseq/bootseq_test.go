package bootseq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunDispatchesToOtaLoopOnWatchdogReset(t *testing.T) {
	var otaEntered, jumped bool
	h := Hooks{
		ConfigureSecondaryWatchdog: func() error { return nil },
		ConfigureMPU:               func([]MPURegion) error { return nil },
		MapNonSecureInterrupts:     func() error { return nil },
		ReleaseNetworkCore:         func() error { return nil },
		WaitNetReady:               func() error { return nil },
		InitRadio:                  func() error { return nil },
		ReadAndClearResetCause:     func() (ResetCause, error) { return ResetCause{WatchdogFired: true}, nil },
		EnterOtaLoop:               func() error { otaEntered = true; return nil },
		JumpToUserImage:            func() error { jumped = true; return nil },
	}

	wentToOta, err := Run(h, MemoryMap(16*1024, 32*1024, 8*1024))
	assert.NoError(t, err)
	assert.True(t, wentToOta)
	assert.True(t, otaEntered)
	assert.False(t, jumped)
}

func TestRunJumpsToUserImageOnNormalReset(t *testing.T) {
	var otaEntered, jumped bool
	h := Hooks{
		ConfigureSecondaryWatchdog: func() error { return nil },
		ConfigureMPU:               func([]MPURegion) error { return nil },
		MapNonSecureInterrupts:     func() error { return nil },
		ReleaseNetworkCore:         func() error { return nil },
		WaitNetReady:               func() error { return nil },
		InitRadio:                  func() error { return nil },
		ReadAndClearResetCause:     func() (ResetCause, error) { return ResetCause{WatchdogFired: false}, nil },
		EnterOtaLoop:               func() error { otaEntered = true; return nil },
		JumpToUserImage:            func() error { jumped = true; return nil },
	}

	wentToOta, err := Run(h, MemoryMap(16*1024, 32*1024, 8*1024))
	assert.NoError(t, err)
	assert.False(t, wentToOta)
	assert.True(t, jumped)
	assert.False(t, otaEntered)
}

func TestRunStopsAtFirstFailingStep(t *testing.T) {
	called := false
	h := Hooks{
		ConfigureSecondaryWatchdog: func() error { return errors.New("watchdog init failed") },
		ConfigureMPU:               func([]MPURegion) error { called = true; return nil },
	}

	_, err := Run(h, nil)
	assert.Error(t, err)
	assert.False(t, called, "later steps must not run once an earlier one fails")
}

func TestMemoryMapMarksGatewaySubregionNonSecureCallable(t *testing.T) {
	regions := MemoryMap(16*1024, 32*1024, 8*1024)
	var found bool
	for _, r := range regions {
		if r.NonSecureCallable {
			found = true
			assert.Equal(t, uint32(8*1024), r.Size)
		}
	}
	assert.True(t, found, "expected a non-secure-callable region")
}
