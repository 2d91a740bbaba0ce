// Package netsvc implements N's main loop: service requests from S over
// the mailbox, and on every inbound radio frame decide whether it is a
// command frame for this device, a user-data frame to hand to the user
// image, or neither.
//
// Grounded on a select-over-a-small-set-of-channels event loop structure
// (each case handled by a dedicated method) and on spirilis-smacbase's
// npi_linkmgr.go for the radio-call dispatch shape.
package netsvc

import (
	"sync"

	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/mailbox"
	"github.com/openswarm-eu/swarmit/internal/radio"
	"github.com/openswarm-eu/swarmit/internal/wire"
)

// Service runs N's side of the system: it owns the radio, services S's
// mailbox requests, and classifies inbound frames.
type Service struct {
	deviceID uint64
	radio    radio.Radio
	tdma     radio.TdmaClient
	rng      RNG
	cb       *mailbox.ControlBlock

	mu       sync.Mutex
	lastRSSI int8
	running  bool
}

// RNG is N's hardware randomness source, serviced via the mailbox's
// RngInit/RngRead requests the same way radio.Radio services the radio
// requests.
type RNG interface {
	Init() error
	Read() (uint32, error)
}

// New returns a Service for deviceID, driving r and coordinating with S
// through cb.
func New(deviceID uint64, r radio.Radio, cb *mailbox.ControlBlock) *Service {
	return &Service{deviceID: deviceID, radio: r, cb: cb}
}

// WithTdmaClient attaches a TDMA client variant so the TdmaClient* mailbox
// requests have something to dispatch to.
func (s *Service) WithTdmaClient(t radio.TdmaClient) *Service {
	s.tdma = t
	return s
}

// WithRNG attaches a hardware randomness source so RngInit/RngRead mailbox
// requests return real entropy instead of the simulated-path default of
// zero.
func (s *Service) WithRNG(r RNG) *Service {
	s.rng = r
	return s
}

// SetRunning records whether the supervisor's status is Running, which
// changes how a non-command inbound frame is routed: to the user image
// when Running, dropped otherwise.
func (s *Service) SetRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

// LastRSSI reports the signal strength of the most recently received
// frame. Supplemented status-enrichment accessor: it does not touch the
// wire format, only gives the supervisor something to log alongside a
// Status reply.
func (s *Service) LastRSSI() int8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRSSI
}

// Run services the control block's request channel and the radio's
// receive channel until stop is closed. It is meant to run as N's single
// cooperative loop.
func (s *Service) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-s.cb.RequestCh():
			s.cb.ServiceRequest(s.dispatchRequest)
		case frame := <-s.radio.Recv():
			s.handleFrame(frame)
		case <-s.cb.StopCh():
			s.SetRunning(false)
		case <-s.cb.OtaStartCh():
			s.SetRunning(false)
		}
	}
}

// dispatchRequest executes one mailbox request from S against the radio,
// reading the input fields of sub and writing the output fields back.
func (s *Service) dispatchRequest(tag mailbox.RequestTag, sub *mailbox.RadioSubrecord) {
	switch tag {
	case mailbox.RadioInit:
		sub.Err = s.radio.Init()
	case mailbox.RadioSetFreq, mailbox.RadioSetChannel:
		sub.Err = s.radio.SetFrequency(sub.Channel)
	case mailbox.RadioTx:
		sub.Err = s.radio.Tx(sub.Buf)
	case mailbox.RadioDisable:
		sub.Err = s.radio.Disable()
	case mailbox.RadioRssi:
		sub.RSSI, sub.Err = s.radio.Rssi()
	case mailbox.RadioSetAddress:
		// Address filtering happens in handleFrame against deviceID; this
		// request only exists to let S override the filter target.
		if len(sub.Address) >= 8 {
			s.deviceID = decodeID(sub.Address)
		}
	case mailbox.RadioRx:
		// Servicing RadioRx is a no-op: inbound frames are already
		// delivered asynchronously through handleFrame.
	case mailbox.RngInit:
		if s.rng != nil {
			sub.Err = s.rng.Init()
		}
	case mailbox.RngRead:
		if s.rng != nil {
			sub.RandomWord, sub.Err = s.rng.Read()
		} else {
			// No RNG peripheral modeled on the simulated path; requests
			// are accepted and return zero so callers proceeding past
			// RngInit do not spin forever waiting on net_ack.
			sub.RandomWord = 0
		}
	case mailbox.TdmaClientInit, mailbox.TdmaClientSetTable, mailbox.TdmaClientGetTable,
		mailbox.TdmaClientTx, mailbox.TdmaClientFlush, mailbox.TdmaClientEmpty, mailbox.TdmaClientStatus:
		s.dispatchTdma(tag, sub)
	}
}

func (s *Service) dispatchTdma(tag mailbox.RequestTag, sub *mailbox.RadioSubrecord) {
	if s.tdma == nil {
		return
	}
	switch tag {
	case mailbox.TdmaClientInit:
		sub.Err = s.tdma.Init()
	case mailbox.TdmaClientSetTable:
		sub.Err = s.tdma.SetTable(sub.Table)
	case mailbox.TdmaClientGetTable:
		sub.Table, sub.Err = s.tdma.GetTable()
	case mailbox.TdmaClientTx:
		sub.Err = s.tdma.Tx(sub.Buf)
	case mailbox.TdmaClientFlush:
		sub.Err = s.tdma.Flush()
	case mailbox.TdmaClientEmpty:
		var empty bool
		empty, sub.Err = s.tdma.Empty()
		if empty {
			sub.Status = 1
		} else {
			sub.Status = 0
		}
	case mailbox.TdmaClientStatus:
		sub.Status, sub.Err = s.tdma.Status()
	}
}

func decodeID(addr []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(addr); i++ {
		v |= uint64(addr[i]) << (8 * i)
	}
	return v
}

// handleFrame classifies one inbound radio frame: a command frame for
// this device is latched for S; a user-data frame is latched for the
// user image only while Running; anything else is dropped.
func (s *Service) handleFrame(frame radio.Frame) {
	s.mu.Lock()
	s.lastRSSI = frame.RSSI
	running := s.running
	s.mu.Unlock()

	header, body, err := wire.DecodeHeader(frame.Data)
	if err != nil || header.Type != wire.SwarmitPacketType {
		return
	}
	if !header.MatchesDestination(s.deviceID, config.BroadcastID) {
		return
	}

	if cmd, err := wire.DecodeCommand(body); err == nil && isRoutedCommand(cmd.Tag) {
		s.cb.LatchCommand(body)
		return
	}

	if running {
		s.cb.LatchUserPDU(body)
	}
}

// isRoutedCommand reports whether tag is one of the command frame tags
// routed to the supervisor state machine (0x80..0x84); anything else is
// either not a command frame or not one the supervisor recognizes.
func isRoutedCommand(tag wire.CommandTag) bool {
	return tag >= wire.CmdStatus && tag <= wire.CmdOtaChunk
}
