// Package radio defines the six-operation radio library interface treated
// as an external collaborator (init, set_frequency, tx, rx, disable,
// rssi) plus the TDMA client variant, and provides a host-testable
// in-memory simulation of the radio medium used by internal/netsvc's
// tests.
//
// Grounded on spirilis-smacbase's npi_linkmgr.go control API shape
// (GetRadio/SetFrequency/SetPower/On as a small, explicit verb set over a
// single link object) and the peripheral-owning style of
// bindicator.go/main.go.
package radio

// Frame is a received radio frame together with its signal strength.
type Frame struct {
	Data []byte
	RSSI int8
}

// Radio is the six operations N drives directly.
type Radio interface {
	Init() error
	SetFrequency(channel uint8) error
	Tx(buf []byte) error
	Disable() error
	Rssi() (int8, error)
	// Recv returns the channel on which received frames are delivered.
	// Real hardware raises an RX interrupt per frame; this channel plays
	// the same role for the host-testable simulation and for N's event
	// loop, which examines every inbound frame as it arrives.
	Recv() <-chan Frame
}

// TdmaClient is the TDMA-scheduled variant of the mailbox request set. The
// protocol names the tags but leaves their semantics to the radio library
// in use, so the shape here follows the same verb set as Radio, adapted
// to a queued/flushed transmit model typical of TDMA slot scheduling.
type TdmaClient interface {
	Init() error
	SetTable(table []byte) error
	GetTable() ([]byte, error)
	Tx(buf []byte) error
	Flush() error
	Empty() (bool, error)
	Status() (uint8, error)
	Recv() <-chan Frame
}
