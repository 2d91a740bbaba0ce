package mailbox

import (
	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/wire"
)

// RadioEmitter adapts a ControlBlock into a supervisor.Emitter /
// logbridge.Emitter: it wraps a notification body in a wire header and
// posts it as a RadioTx request. Notifications are broadcast rather than
// addressed back to a specific host id, since LatchCommand does not
// currently preserve which host sent the command being replied to; any
// listening gateway tool accepts broadcast frames the same way it accepts
// ones addressed to it by name.
type RadioEmitter struct {
	cb       *ControlBlock
	deviceID uint64
}

// NewRadioEmitter returns an Emitter that posts notifications from
// deviceID through cb.
func NewRadioEmitter(cb *ControlBlock, deviceID uint64) *RadioEmitter {
	return &RadioEmitter{cb: cb, deviceID: deviceID}
}

// Emit wraps body in a broadcast-addressed header and enqueues it for
// transmission.
func (e *RadioEmitter) Emit(body []byte) {
	frame := wire.EncodeHeader(nil, wire.Header{
		Version:     wire.ProtocolVersion,
		Type:        wire.SwarmitPacketType,
		Destination: config.BroadcastID,
		Source:      e.deviceID,
	})
	frame = append(frame, body...)
	e.cb.Call(RadioTx, func(sub *RadioSubrecord) {
		sub.Buf = frame
	})
}
