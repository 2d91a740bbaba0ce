//go:build tinygo

package deviceid

import "device/nrf"

// FICR reads the factory-programmed 64-bit device id out of the nRF
// FICR.DEVICEID registers.
type FICR struct{}

// ID returns the 64-bit factory id, low word first.
func (FICR) ID() uint64 {
	lo := nrf.FICR.DEVICEID0.Get()
	hi := nrf.FICR.DEVICEID1.Get()
	return uint64(hi)<<32 | uint64(lo)
}
