// Package supervisor implements the experiment state machine: the
// permissible-command table per status, OTA session orchestration via
// internal/otacore and internal/flashmem, and the mailbox raises that
// accompany each transition.
//
// Grounded on bindicator.go's main loop shape (a single Apply-style
// dispatch over a small enum plus an explicit ignore-path for disallowed
// transitions) and on internal/otacore/internal/flashmem for the
// OTA-specific bookkeeping this package orchestrates but does not
// reimplement.
package supervisor

import (
	"fmt"

	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/flashmem"
	"github.com/openswarm-eu/swarmit/internal/otacore"
	"github.com/openswarm-eu/swarmit/internal/wire"
)

// Status is the experiment lifecycle state. Resetting is intentionally
// absent: it names a reserved state for localization-aware variants this
// implementation does not carry.
type Status uint8

const (
	Ready Status = iota
	Running
	Stopping
	Programming
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Programming:
		return "Programming"
	default:
		return "Unknown"
	}
}

// Byte returns the wire encoding of the status, used by StatusNotification.
func (s Status) Byte() uint8 { return uint8(s) }

// MailboxRaiser is the narrow signaling surface the supervisor uses to
// announce a transition to the rest of the system: a reset-on-start
// watcher consumes start-experiment and jumps to the user image on the
// next boot; a stop watcher arms the non-pettable secondary watchdog to
// forcibly tear down a running user image; N's receive loop consumes
// ota-start to stop forwarding frames to the user image while flash
// programming is underway. It is satisfied by *mailbox.ControlBlock in
// production and by a fake in tests.
type MailboxRaiser interface {
	RaiseStartExperiment()
	RaiseStop()
	RaiseOtaStart()
}

// Emitter sends a notification frame device-to-host. Supervisor never
// touches the radio/mailbox request path directly; it hands encoded
// notifications to whatever forwards them (mailbox.RadioEmitter in practice).
type Emitter interface {
	Emit(body []byte)
}

// Supervisor owns the experiment status and, while Programming, the
// associated OTA session and flash writer.
type Supervisor struct {
	DeviceID uint64
	status   Status

	session *otacore.Session
	writer  *flashmem.Writer

	mailbox MailboxRaiser
	emitter Emitter
}

// New returns a Supervisor starting in Ready, the only state a freshly
// booted device (outside of a resumed OTA session) can be in.
func New(deviceID uint64, writer *flashmem.Writer, mb MailboxRaiser, emitter Emitter) *Supervisor {
	return &Supervisor{
		DeviceID: deviceID,
		status:   Ready,
		writer:   writer,
		mailbox:  mb,
		emitter:  emitter,
	}
}

// Status returns the current experiment status.
func (s *Supervisor) Status() Status { return s.status }

// HandleCommand routes an incoming command frame per the permissible-
// command table. Frames whose tag is outside 0x80..0x84, or whose
// TargetID does not match deviceID or the broadcast id, are the caller's
// responsibility to filter before calling HandleCommand; a mismatch found
// here is treated the same way: silently ignored.
func (s *Supervisor) HandleCommand(cmd wire.Command) error {
	if cmd.TargetID != s.DeviceID && cmd.TargetID != config.BroadcastID {
		return nil
	}
	switch cmd.Tag {
	case wire.CmdStatus:
		s.emitStatus()
		return nil
	case wire.CmdStart:
		s.handleStart()
		return nil
	case wire.CmdStop:
		s.handleStop()
		return nil
	case wire.CmdOtaStart:
		return s.handleOtaStart(cmd.Payload)
	case wire.CmdOtaChunk:
		return s.handleOtaChunk(cmd.Payload)
	default:
		return nil
	}
}

func (s *Supervisor) emitStatus() {
	if s.emitter == nil {
		return
	}
	body := wire.StatusNotification{DeviceID: s.DeviceID, Status: s.status.Byte()}.Encode(nil)
	s.emitter.Emit(body)
}

// handleStart is permitted only from Ready; raising the start-experiment
// mailbox does not itself change status — that happens only after the
// ensuing reset, decided by the boot dispatcher.
func (s *Supervisor) handleStart() {
	if s.status != Ready {
		return
	}
	if s.mailbox != nil {
		s.mailbox.RaiseStartExperiment()
	}
}

// handleStop is permitted from Running or Programming.
func (s *Supervisor) handleStop() {
	if s.status != Running && s.status != Programming {
		return
	}
	s.status = Stopping
	if s.mailbox != nil {
		s.mailbox.RaiseStop()
	}
}

// handleOtaStart is permitted only from Ready. A session already underway
// (status == Programming) leaves this a no-op: a new session requires a
// full Stop+Ready cycle first.
func (s *Supervisor) handleOtaStart(payload []byte) error {
	if s.status != Ready {
		return nil
	}
	p, err := wire.DecodeOtaStartPayload(payload)
	if err != nil {
		return fmt.Errorf("supervisor: decode OtaStart payload: %w", err)
	}
	s.session = otacore.NewSession(p.ImageSize, p.ChunkCount, p.Hash, nil)
	s.status = Programming

	if s.writer != nil {
		if err := s.writer.EraseForImage(p.ImageSize); err != nil {
			return fmt.Errorf("supervisor: erase for image: %w", err)
		}
	}
	if s.mailbox != nil {
		s.mailbox.RaiseOtaStart()
	}
	if s.emitter != nil {
		body := wire.OtaStartAckNotification{DeviceID: s.DeviceID}.Encode(nil)
		s.emitter.Emit(body)
	}
	return nil
}

// handleOtaChunk is permitted only from Programming. Flash writes are
// idempotent per index (flashmem's pre-erase discipline), and
// otacore.Session.ApplyChunk skips the hash update when a chunk repeats
// the last applied index; any other re-send or reordering enters the hash
// again and ends in a mismatch. On the final chunk the session transitions
// back to Ready regardless of whether the hash matched.
func (s *Supervisor) handleOtaChunk(payload []byte) error {
	if s.status != Programming {
		return nil
	}
	p, err := wire.DecodeOtaChunkPayload(payload)
	if err != nil {
		return fmt.Errorf("supervisor: decode OtaChunk payload: %w", err)
	}
	if s.session == nil {
		return fmt.Errorf("supervisor: OtaChunk received with no active session")
	}

	if s.writer != nil {
		if err := s.writer.WriteChunk(p.Index, config.ChunkSize, p.ChunkSize, p.Chunk[:]); err != nil {
			return fmt.Errorf("supervisor: write chunk %d: %w", p.Index, err)
		}
	}

	isLast, err := s.session.ApplyChunk(p.Index, p.Chunk[:p.ChunkSize])
	if err != nil {
		return fmt.Errorf("supervisor: apply chunk %d: %w", p.Index, err)
	}

	if s.emitter != nil {
		body := wire.OtaChunkAckNotification{DeviceID: s.DeviceID, Index: p.Index}.Encode(nil)
		s.emitter.Emit(body)
	}

	if isLast {
		s.status = Ready
	}
	return nil
}

// HashesMatch reports the tri-state hash-comparison result of the most
// recently completed OTA session, for test hooks and status enrichment.
// It returns otacore.MatchUnknown if no session has completed.
func (s *Supervisor) HashesMatch() otacore.MatchState {
	if s.session == nil {
		return otacore.MatchUnknown
	}
	return s.session.HashesMatch
}
