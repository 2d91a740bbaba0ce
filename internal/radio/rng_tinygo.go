//go:build tinygo

package radio

import "device/nrf"

// NRFRNG drives the nRF5340 network core's hardware random number
// generator. Like NRFRadio, N has exclusive ownership of this peripheral;
// S only ever sees it through the RngInit/RngRead mailbox requests.
type NRFRNG struct{}

// NewNRFRNG returns the real RNG driver.
func NewNRFRNG() *NRFRNG { return &NRFRNG{} }

// Init enables the bias-corrected output and starts continuous generation.
func (NRFRNG) Init() error {
	nrf.RNG.CONFIG.Set(nrf.RNG_CONFIG_DERCEN)
	nrf.RNG.TASKS_START.Set(1)
	return nil
}

// Read blocks until one byte of fresh randomness is ready and returns it
// replicated across all four bytes of the word, matching the single-byte
// granularity of the RNG peripheral's VALUE register.
func (NRFRNG) Read() (uint32, error) {
	for nrf.RNG.EVENTS_VALRDY.Get() == 0 {
	}
	v := uint8(nrf.RNG.VALUE.Get())
	nrf.RNG.EVENTS_VALRDY.Set(0)
	word := uint32(v) | uint32(v)<<8 | uint32(v)<<16 | uint32(v)<<24
	return word, nil
}
