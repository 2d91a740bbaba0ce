// Package hostlink is the host side of the wire protocol's serial
// transport: it opens a serial port to a device's console/radio bridge,
// frames outgoing packets with a length prefix, and reassembles incoming
// bytes back into frames for the caller.
//
// Grounded on spirilis-smacbase's npi_phy.go: the same
// open-port-then-spawn-reader/writer-goroutines shape, with a "halt"
// channel closed by whichever side hits a PHY error first. The NPI
// start-byte/checksum scanner is replaced by a plain 2-byte
// little-endian length prefix, since the wire protocol's own header
// already carries no self-delimiting marker.
package hostlink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"
)

// maxFrameLen bounds a single length-prefixed frame, generous enough for
// the fixed protocol header plus the largest command/notification body.
const maxFrameLen = 1024

// Open opens the named serial port at the given baud rate for 8N1
// communication with a device's secure console/radio bridge.
func Open(path string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              path,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
		MinimumReadSize:       1,
	}
	return serial.Open(opts)
}

// ErrClosed is returned from Send once the link has been closed.
var ErrClosed = errors.New("hostlink: link closed")

// Link frames wire protocol packets over a raw byte stream.
type Link struct {
	phy    io.ReadWriteCloser
	recvCh chan []byte
	halt   chan struct{}
	haltOnce sync.Once
	writeMu sync.Mutex
}

// New wraps phy and starts the background reader that reassembles frames.
func New(phy io.ReadWriteCloser) *Link {
	l := &Link{
		phy:    phy,
		recvCh: make(chan []byte, 16),
		halt:   make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// Recv returns the channel on which reassembled frames (header+body,
// length prefix already stripped) are delivered. The channel is closed
// when the link's reader hits a PHY error.
func (l *Link) Recv() <-chan []byte {
	return l.recvCh
}

// Send writes one length-prefixed frame to the link.
func (l *Link) Send(frame []byte) error {
	if len(frame) > maxFrameLen {
		return fmt.Errorf("hostlink: frame of %d bytes exceeds %d byte limit", len(frame), maxFrameLen)
	}
	select {
	case <-l.halt:
		return ErrClosed
	default:
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	buf := make([]byte, 2+len(frame))
	binary.LittleEndian.PutUint16(buf, uint16(len(frame)))
	copy(buf[2:], frame)
	_, err := l.phy.Write(buf)
	if err != nil {
		l.fault()
		return err
	}
	return nil
}

// Close shuts down the reader and closes the underlying port.
func (l *Link) Close() error {
	l.fault()
	return l.phy.Close()
}

func (l *Link) fault() {
	l.haltOnce.Do(func() { close(l.halt) })
}

// readLoop scans the incoming byte stream for length-prefixed frames,
// mirroring npiPhyReader's running-buffer reassembly: a single read from
// the port may contain a partial frame, a full frame, several frames, or
// any mix of those.
func (l *Link) readLoop() {
	defer close(l.recvCh)

	var pending []byte
	raw := make([]byte, 4096)

	for {
		n, err := l.phy.Read(raw)
		if err != nil {
			l.fault()
			return
		}
		pending = append(pending, raw[:n]...)

		for {
			if len(pending) < 2 {
				break
			}
			frameLen := int(binary.LittleEndian.Uint16(pending[0:2]))
			if frameLen > maxFrameLen {
				// Desynchronized stream; nothing salvageable.
				l.fault()
				return
			}
			if len(pending) < 2+frameLen {
				break
			}
			frame := append([]byte(nil), pending[2:2+frameLen]...)
			pending = pending[2+frameLen:]

			select {
			case l.recvCh <- frame:
			case <-l.halt:
				return
			}
		}
	}
}
