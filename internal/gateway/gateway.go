// Package gateway implements the non-secure-callable stub surface: the
// functions the user image may call across the secure boundary, each
// enforcing the same safety contract — reject oversized lengths and
// reject source addresses inside secure RAM or secure flash — as a
// no-op, never an error, matching the "argument laundering" discipline
// describing the real gateway veneer.
//
// Grounded on the small, single-purpose exported functions pattern that
// wraps each peripheral call in firmware main loops, adapted here to
// bounds-checked pointer/length pairs instead of typed Go values, since
// this is the one place SwarmIT genuinely crosses a trust boundary.
package gateway

import (
	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/mailbox"
)

// MemoryRegion describes a [Start, Start+Size) byte range of secure
// memory the user image must never be able to make S dereference.
type MemoryRegion struct {
	Start uint32
	Size  uint32
}

// contains reports whether any byte of [addr, addr+length) lies inside r.
// A range that wraps past the top of the address space counts as inside.
func (r MemoryRegion) contains(addr, length uint32) bool {
	if r.Size == 0 {
		return false
	}
	end := addr + length
	if end < addr {
		return true
	}
	return addr < r.Start+r.Size && (end > r.Start || addr >= r.Start)
}

// WatchdogPetter pets the primary watchdog. Satisfied by the board's real
// watchdog peripheral in production and a counting fake in tests.
type WatchdogPetter interface {
	Pet()
}

// RandomSource supplies randomness for rng_read, serviced by N over the
// mailbox.
type RandomSource interface {
	Init() error
	Read() (uint32, error)
}

// DeviceIDReader exposes the 64-bit factory id.
type DeviceIDReader interface {
	ID() uint64
}

// Gateway implements the non-secure-callable surface. deviceRAM and
// deviceFlash describe the secure regions no user-supplied pointer may
// fall within.
type Gateway struct {
	cb      *mailbox.ControlBlock
	wdt     WatchdogPetter
	rng     RandomSource
	id      DeviceIDReader
	secureRAM, secureFlash MemoryRegion
}

// New returns a Gateway wired to the given collaborators.
func New(cb *mailbox.ControlBlock, wdt WatchdogPetter, rng RandomSource, id DeviceIDReader, secureRAM, secureFlash MemoryRegion) *Gateway {
	return &Gateway{cb: cb, wdt: wdt, rng: rng, id: id, secureRAM: secureRAM, secureFlash: secureFlash}
}

// rejectsAddress reports whether addr/length falls within a secure
// region, the guard against the user image tricking S into dereferencing
// its own memory.
func (g *Gateway) rejectsAddress(addr, length uint32) bool {
	if length > config.MaxPDULen {
		return true
	}
	return g.secureRAM.contains(addr, length) || g.secureFlash.contains(addr, length)
}

// ReloadPrimaryWatchdog pets only the primary watchdog.
func (g *Gateway) ReloadPrimaryWatchdog() {
	if g.wdt != nil {
		g.wdt.Pet()
	}
}

// SendDataPacket enqueues a TX request on N for the len bytes at ptr. A
// rejected call is a silent no-op.
func (g *Gateway) SendDataPacket(ptr uint32, buf []byte) {
	g.sendRaw(ptr, buf)
}

// SendRaw is the same enqueue path as SendDataPacket; the distinction
// upstream is cosmetic (framed vs. raw payload), both ultimately post a
// RadioTx request.
func (g *Gateway) SendRaw(ptr uint32, buf []byte) {
	g.sendRaw(ptr, buf)
}

func (g *Gateway) sendRaw(ptr uint32, buf []byte) {
	if g.rejectsAddress(ptr, uint32(len(buf))) {
		return
	}
	if g.cb == nil {
		return
	}
	g.cb.Call(mailbox.RadioTx, func(sub *mailbox.RadioSubrecord) {
		sub.Buf = buf
	})
}

// RxISR returns and clears the latched user-data frame, if any. Real
// hardware invokes this from the radio-rx mailbox's interrupt context;
// here it is a plain accessor the user image's loop calls after waking
// on the radio-rx mailbox.
func (g *Gateway) RxISR() ([]byte, bool) {
	if g.cb == nil {
		return nil, false
	}
	return g.cb.TakeUserPDU()
}

// RngInit requests N initialize its randomness source.
func (g *Gateway) RngInit() {
	if g.rng != nil {
		g.rng.Init()
	}
}

// RngRead requests one random word from N.
func (g *Gateway) RngRead() (uint32, error) {
	if g.rng == nil {
		return 0, nil
	}
	return g.rng.Read()
}

// ReadDeviceID returns the device's 64-bit factory id.
func (g *Gateway) ReadDeviceID() uint64 {
	if g.id == nil {
		return 0
	}
	return g.id.ID()
}

// LogData copies buf into the shared-memory log and raises the log-event
// mailbox. S later forwards a LogEvent notification built from this data.
func (g *Gateway) LogData(ptr uint32, buf []byte) {
	if g.rejectsAddress(ptr, uint32(len(buf))) {
		return
	}
	if g.cb == nil {
		return
	}
	g.cb.LatchLog(buf)
}

// GpioEvent raises a GPIO change for S to forward as a GpioEvent
// notification. Supplemented feature: the wire format already reserves
// tag 0x88 for this but no module in the distilled design produces it.
func (g *Gateway) GpioEvent(port, pin, value uint8) {
	if g.cb == nil {
		return
	}
	g.cb.LatchGpioEvent(mailbox.GpioEvent{Port: port, Pin: pin, Value: value})
}
