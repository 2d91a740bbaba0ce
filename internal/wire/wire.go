// Package wire implements the SwarmIT wire protocol: the packet header
// shared by every frame, and the tag-first command and notification
// frames exchanged between the gateway and a device.
//
// Framing uses a tag-first command layout with no start-byte preamble;
// legacy DotBot/TDMA preamble variants are not implemented. Encoding is
// little-endian throughout, grounded on the chunked-transfer framing in
// ota_server.go and the start-byte/tag framing discipline of
// spirilis-smacbase's npi_protocol.go (SMac NPI), adapted to a
// fixed-width header instead of NPI's XOR-checksummed variable frames.
package wire

import (
	"encoding/binary"
	"errors"
)

// HeaderLen is the size in bytes of the protocol header.
const HeaderLen = 1 + 1 + 8 + 8

// PacketType distinguishes a Swarmit command/notification payload from any
// other traffic sharing the radio link (out of scope here; unrecognized
// types are simply not handed to the command/notification decoders).
type PacketType uint8

// The only packet type this module decodes.
const SwarmitPacketType PacketType = 0x01

// ProtocolVersion is the only header version this implementation emits or
// accepts.
const ProtocolVersion = 1

// Header is the fixed fields preceding every frame's body.
type Header struct {
	Version     uint8
	Type        PacketType
	Destination uint64
	Source      uint64
}

// MatchesDestination reports whether a frame addressed to h.Destination
// should be accepted by a device with the given id: either the broadcast
// sentinel or an exact match.
func (h Header) MatchesDestination(deviceID uint64, broadcast uint64) bool {
	return h.Destination == broadcast || h.Destination == deviceID
}

// ErrShortBuffer is returned when decoding a header or body from a buffer
// too small to hold it.
var ErrShortBuffer = errors.New("wire: buffer too short")

// EncodeHeader appends the encoded header to dst and returns the result.
func EncodeHeader(dst []byte, h Header) []byte {
	dst = append(dst, h.Version, uint8(h.Type))
	dst = binary.LittleEndian.AppendUint64(dst, h.Destination)
	dst = binary.LittleEndian.AppendUint64(dst, h.Source)
	return dst
}

// DecodeHeader parses a header from the front of buf and returns it along
// with the remaining bytes (the body). The receiver slices the header off
// before dispatching the body to the command/notification decoders.
func DecodeHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderLen {
		return Header{}, nil, ErrShortBuffer
	}
	h := Header{
		Version:     buf[0],
		Type:        PacketType(buf[1]),
		Destination: binary.LittleEndian.Uint64(buf[2:10]),
		Source:      binary.LittleEndian.Uint64(buf[10:18]),
	}
	return h, buf[HeaderLen:], nil
}
