// Package mailbox implements the shared-memory control block and
// edge-triggered signaling discipline S and N use to cooperate across the
// core boundary. It is a typed handle around what is, on real hardware, a
// single word-aligned struct in shared RAM: every multi-word read or write
// goes through Lock/Unlock, and the two boolean handshake flags are atomic
// so the spin-wait in Call has a well-defined memory model.
//
// Grounded on spirilis-smacbase's NpiControl/PendChan request-and-wait-for-
// reply shape, adapted from a channel-based ack to the atomic-flag
// spin-wait the dual-core control block actually uses, and on the
// teacher's own preference for small, explicit structs over generic
// containers.
package mailbox

import (
	"sync"
	"sync/atomic"
)

// RequestTag enumerates the calls S can issue to N.
type RequestTag uint8

const (
	RequestNone RequestTag = iota
	RadioInit
	RadioSetFreq
	RadioSetChannel
	RadioSetAddress
	RadioRx
	RadioDisable
	RadioTx
	RadioRssi
	RngInit
	RngRead
	TdmaClientInit
	TdmaClientSetTable
	TdmaClientGetTable
	TdmaClientTx
	TdmaClientFlush
	TdmaClientEmpty
	TdmaClientStatus
)

func (t RequestTag) String() string {
	switch t {
	case RequestNone:
		return "None"
	case RadioInit:
		return "RadioInit"
	case RadioSetFreq:
		return "RadioSetFreq"
	case RadioSetChannel:
		return "RadioSetChannel"
	case RadioSetAddress:
		return "RadioSetAddress"
	case RadioRx:
		return "RadioRx"
	case RadioDisable:
		return "RadioDisable"
	case RadioTx:
		return "RadioTx"
	case RadioRssi:
		return "RadioRssi"
	case RngInit:
		return "RngInit"
	case RngRead:
		return "RngRead"
	case TdmaClientInit:
		return "TdmaClientInit"
	case TdmaClientSetTable:
		return "TdmaClientSetTable"
	case TdmaClientGetTable:
		return "TdmaClientGetTable"
	case TdmaClientTx:
		return "TdmaClientTx"
	case TdmaClientFlush:
		return "TdmaClientFlush"
	case TdmaClientEmpty:
		return "TdmaClientEmpty"
	case TdmaClientStatus:
		return "TdmaClientStatus"
	}
	return "Unknown"
}

// RadioSubrecord carries the input/output fields of radio- and rng-shaped
// requests. S populates the input fields before raising a request and
// reads the output fields after net_ack; N does the reverse.
type RadioSubrecord struct {
	Channel    uint8
	Address    []byte
	Buf        []byte
	Table      []byte
	RSSI       int8
	Status     uint8
	RandomWord uint32
	Err        error
}

// ControlBlock is the cross-core handle. A single instance is shared by S
// and N; each signal channel carries no payload of its own, only the
// announcement that the shared fields changed.
type ControlBlock struct {
	mu sync.Mutex

	netReady atomic.Bool
	netAck   atomic.Bool

	req RequestTag
	sub RadioSubrecord

	requestCh chan struct{}
	commandCh chan struct{}
	radioRxCh chan struct{}
	logCh     chan struct{}
	gpioCh    chan struct{}

	startExperimentCh chan struct{}
	stopCh            chan struct{}
	otaStartCh        chan struct{}

	pendingCommand []byte
	pendingUserPDU []byte
	pendingLog     []byte
	pendingGpio    []GpioEvent
}

// GpioEvent is a single GPIO transition latched by the user image's
// gateway.GpioEvent stub, awaiting forwarding as a wire GpioEvent
// notification.
type GpioEvent struct {
	Port, Pin, Value uint8
}

// New returns a zeroed control block with its signal channels ready.
// Channels are buffered to depth 1 and sends are non-blocking: this is
// what makes the mailbox edge-triggered-and-coalescing rather than a
// queue, matching the discipline that receivers must re-scan shared state
// on every wake instead of counting raises.
func New() *ControlBlock {
	return &ControlBlock{
		requestCh: make(chan struct{}, 1),
		commandCh: make(chan struct{}, 1),
		radioRxCh: make(chan struct{}, 1),
		logCh:     make(chan struct{}, 1),
		gpioCh:    make(chan struct{}, 1),

		startExperimentCh: make(chan struct{}, 1),
		stopCh:            make(chan struct{}, 1),
		otaStartCh:        make(chan struct{}, 1),
	}
}

func raise(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// NetReady reports whether N has completed its own init.
func (c *ControlBlock) NetReady() bool { return c.netReady.Load() }

// SetNetReady is called once by N after init.
func (c *ControlBlock) SetNetReady() { c.netReady.Store(true) }

// RequestCh is the *request* mailbox channel N waits on.
func (c *ControlBlock) RequestCh() <-chan struct{} { return c.requestCh }

// CommandCh is the *command* mailbox channel S waits on.
func (c *ControlBlock) CommandCh() <-chan struct{} { return c.commandCh }

// RadioRxCh is the *radio-rx* mailbox channel the user image waits on.
func (c *ControlBlock) RadioRxCh() <-chan struct{} { return c.radioRxCh }

// LogCh is the *log-event* mailbox channel S waits on.
func (c *ControlBlock) LogCh() <-chan struct{} { return c.logCh }

// GpioCh is the mailbox channel S waits on for GPIO events raised by the
// user image's gateway stub.
func (c *ControlBlock) GpioCh() <-chan struct{} { return c.gpioCh }

// RaiseStartExperiment signals cmd/supervisor's reset watcher that a Start
// command was accepted. It satisfies supervisor.MailboxRaiser.
func (c *ControlBlock) RaiseStartExperiment() { raise(c.startExperimentCh) }

// RaiseStop signals cmd/supervisor's stop watcher that a running
// experiment must be torn down. It satisfies supervisor.MailboxRaiser.
func (c *ControlBlock) RaiseStop() { raise(c.stopCh) }

// RaiseOtaStart signals N that flash programming has begun, so it stops
// forwarding inbound frames to the user image for the session's duration.
// It satisfies supervisor.MailboxRaiser.
func (c *ControlBlock) RaiseOtaStart() { raise(c.otaStartCh) }

// StartExperimentCh is the mailbox channel cmd/supervisor's reset watcher
// waits on.
func (c *ControlBlock) StartExperimentCh() <-chan struct{} { return c.startExperimentCh }

// StopCh is the mailbox channel cmd/supervisor's stop watcher, and N's
// netsvc.Run, wait on.
func (c *ControlBlock) StopCh() <-chan struct{} { return c.stopCh }

// OtaStartCh is the mailbox channel N's netsvc.Run waits on to learn that
// flash programming has begun.
func (c *ControlBlock) OtaStartCh() <-chan struct{} { return c.otaStartCh }

// Call implements the S-side invocation discipline: lock, write the request
// tag and populate the subrecord via fill, unlock, raise the request, spin
// until net_ack, clear net_ack, then return a copy of the subrecord taken
// under the lock.
func (c *ControlBlock) Call(tag RequestTag, fill func(*RadioSubrecord)) RadioSubrecord {
	c.mu.Lock()
	c.req = tag
	if fill != nil {
		fill(&c.sub)
	}
	c.mu.Unlock()

	c.netAck.Store(false)
	raise(c.requestCh)

	for !c.netAck.Load() {
		// busy-spin: mirrors the real firmware's ipc_network_call, which
		// has nothing else to do until N services the request.
	}
	c.netAck.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.sub
	return out
}

// ServiceRequest is the N-side handler for the *request* mailbox: it reads
// the latched tag and subrecord under the mutex, invokes handle, writes
// the result back, and sets net_ack.
func (c *ControlBlock) ServiceRequest(handle func(RequestTag, *RadioSubrecord)) {
	c.mu.Lock()
	tag := c.req
	handle(tag, &c.sub)
	c.mu.Unlock()
	c.netAck.Store(true)
}

// LatchCommand stores an inbound command frame payload for S and raises
// the command mailbox. Called by N when a radio RX frame matches this
// device's id and carries a command tag.
func (c *ControlBlock) LatchCommand(payload []byte) {
	c.mu.Lock()
	c.pendingCommand = append([]byte(nil), payload...)
	c.mu.Unlock()
	raise(c.commandCh)
}

// TakeCommand returns and clears the latched command payload, if any.
func (c *ControlBlock) TakeCommand() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingCommand == nil {
		return nil, false
	}
	p := c.pendingCommand
	c.pendingCommand = nil
	return p, true
}

// LatchUserPDU stores an inbound user-data frame for the user image and
// raises the radio-rx mailbox. Called by N when status = Running and an
// inbound frame is not a command frame.
func (c *ControlBlock) LatchUserPDU(payload []byte) {
	c.mu.Lock()
	c.pendingUserPDU = append([]byte(nil), payload...)
	c.mu.Unlock()
	raise(c.radioRxCh)
}

// TakeUserPDU returns and clears the latched user-data payload, if any.
func (c *ControlBlock) TakeUserPDU() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingUserPDU == nil {
		return nil, false
	}
	p := c.pendingUserPDU
	c.pendingUserPDU = nil
	return p, true
}

// LatchLog stores bytes from the user image's log_data gateway call and
// raises the log-event mailbox.
func (c *ControlBlock) LatchLog(payload []byte) {
	c.mu.Lock()
	c.pendingLog = append(c.pendingLog, payload...)
	c.mu.Unlock()
	raise(c.logCh)
}

// TakeLog returns and clears any buffered log bytes.
func (c *ControlBlock) TakeLog() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pendingLog) == 0 {
		return nil, false
	}
	p := c.pendingLog
	c.pendingLog = nil
	return p, true
}

// LatchGpioEvent stores a GPIO transition and raises the GPIO mailbox.
func (c *ControlBlock) LatchGpioEvent(ev GpioEvent) {
	c.mu.Lock()
	c.pendingGpio = append(c.pendingGpio, ev)
	c.mu.Unlock()
	raise(c.gpioCh)
}

// TakeGpioEvents returns and clears every buffered GPIO event.
func (c *ControlBlock) TakeGpioEvents() []GpioEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pendingGpio) == 0 {
		return nil
	}
	evs := c.pendingGpio
	c.pendingGpio = nil
	return evs
}
