//go:build tinygo

package radio

import "device/nrf"

// NRFRadio drives the nRF5340 network core's 2.4 GHz RADIO peripheral
// directly. It exists only in N's firmware image (cmd/netcore), which has
// exclusive ownership of the radio.
type NRFRadio struct {
	rxCh chan Frame
}

// NewNRFRadio returns the real radio driver, with room for four received
// frames awaiting the receiver.
func NewNRFRadio() *NRFRadio {
	return &NRFRadio{rxCh: make(chan Frame, 4)}
}

func (r *NRFRadio) Init() error {
	nrf.RADIO.POWER.Set(1)
	nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Ble_1Mbit)
	return nil
}

func (r *NRFRadio) SetFrequency(channel uint8) error {
	nrf.RADIO.FREQUENCY.Set(uint32(channel))
	return nil
}

func (r *NRFRadio) Tx(buf []byte) error {
	nrf.RADIO.TASKS_TXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.TASKS_START.Set(1)
	for nrf.RADIO.EVENTS_END.Get() == 0 {
	}
	nrf.RADIO.EVENTS_END.Set(0)
	return nil
}

func (r *NRFRadio) Disable() error {
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.EVENTS_DISABLED.Get() == 0 {
	}
	nrf.RADIO.EVENTS_DISABLED.Set(0)
	return nil
}

func (r *NRFRadio) Rssi() (int8, error) {
	nrf.RADIO.TASKS_RSSISTART.Set(1)
	for nrf.RADIO.EVENTS_RSSIEND.Get() == 0 {
	}
	nrf.RADIO.EVENTS_RSSIEND.Set(0)
	sample := nrf.RADIO.RSSISAMPLE.Get()
	return -int8(sample), nil
}

func (r *NRFRadio) Recv() <-chan Frame {
	return r.rxCh
}

// onRxInterrupt queues a received frame for Recv, dropping it when the
// queue is full. It is not part of the Radio interface, and no RADIO IRQ
// handler in this repository calls it, so Recv delivers no frames on the
// real radio.
func (r *NRFRadio) onRxInterrupt(buf []byte, rssi int8) {
	cp := append([]byte(nil), buf...)
	select {
	case r.rxCh <- Frame{Data: cp, RSSI: rssi}:
	default:
	}
}
