package radio

import (
	"errors"
	"sync"
)

// Bus is a shared in-memory radio medium: every enabled SimRadio tuned to
// the same channel receives a copy of every other participant's Tx. It
// models the broadcast nature of the real RF medium closely enough to
// exercise multi-device end-to-end scenarios without hardware.
type Bus struct {
	mu      sync.Mutex
	radios  map[*SimRadio]struct{}
}

// NewBus returns an empty radio medium.
func NewBus() *Bus {
	return &Bus{radios: make(map[*SimRadio]struct{})}
}

// NewRadio attaches a new simulated radio to the bus.
func (b *Bus) NewRadio() *SimRadio {
	r := &SimRadio{
		bus:  b,
		rxCh: make(chan Frame, 8),
	}
	b.mu.Lock()
	b.radios[r] = struct{}{}
	b.mu.Unlock()
	return r
}

// ErrDisabled is returned by Tx/Rssi when the radio has not been
// initialized or has been disabled.
var ErrDisabled = errors.New("radio: disabled")

// SimRadio is an in-memory Radio implementation for host-side tests.
type SimRadio struct {
	bus     *Bus
	mu      sync.Mutex
	enabled bool
	channel uint8
	rxCh    chan Frame
	lastSeenRSSI int8
}

func (r *SimRadio) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
	return nil
}

func (r *SimRadio) SetFrequency(channel uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = channel
	return nil
}

func (r *SimRadio) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
	return nil
}

func (r *SimRadio) Rssi() (int8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return 0, ErrDisabled
	}
	return r.lastSeenRSSI, nil
}

func (r *SimRadio) Recv() <-chan Frame {
	return r.rxCh
}

// Tx delivers buf to every other enabled radio on the bus tuned to the same
// channel, simulating a fixed RSSI of -40 dBm (close-range testbed).
func (r *SimRadio) Tx(buf []byte) error {
	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return ErrDisabled
	}
	channel := r.channel
	r.mu.Unlock()

	cp := append([]byte(nil), buf...)

	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()
	for peer := range r.bus.radios {
		if peer == r {
			continue
		}
		peer.mu.Lock()
		deliver := peer.enabled && peer.channel == channel
		peer.mu.Unlock()
		if !deliver {
			continue
		}
		select {
		case peer.rxCh <- Frame{Data: cp, RSSI: -40}:
		default:
			// Receiver not draining fast enough; real hardware would
			// overwrite its single RX buffer too, so drop silently.
		}
	}
	return nil
}
