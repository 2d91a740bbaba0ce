package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CommandTag identifies the kind of a host→device command frame body.
type CommandTag uint8

// Command tags. Only 0x80..0x84 are routed to the supervisor state machine;
// the caller drops anything else after decoding it with this package.
const (
	CmdStatus   CommandTag = 0x80
	CmdStart    CommandTag = 0x81
	CmdStop     CommandTag = 0x82
	CmdOtaStart CommandTag = 0x83
	CmdOtaChunk CommandTag = 0x84
)

func (t CommandTag) String() string {
	switch t {
	case CmdStatus:
		return "Status"
	case CmdStart:
		return "Start"
	case CmdStop:
		return "Stop"
	case CmdOtaStart:
		return "OtaStart"
	case CmdOtaChunk:
		return "OtaChunk"
	default:
		return fmt.Sprintf("CommandTag(0x%02x)", uint8(t))
	}
}

// commandBodyLen is the offset of the payload within a command frame body:
// 1 byte tag + 8 byte target device id.
const commandBodyLen = 1 + 8

// ErrUnknownTag is returned by the notification decoders when the body
// does not carry the expected notification tag or is too short for it.
// DecodeCommand does not check the tag.
var ErrUnknownTag = errors.New("wire: unknown tag")

// Command is a decoded command frame body (everything the protocol header
// in wire.go has already been stripped from).
type Command struct {
	Tag      CommandTag
	TargetID uint64
	Payload  []byte
}

// DecodeCommand parses a command frame body. Payload is a view into body
// and must not be retained past the caller's use of the backing buffer.
func DecodeCommand(body []byte) (Command, error) {
	if len(body) < commandBodyLen {
		return Command{}, ErrShortBuffer
	}
	return Command{
		Tag:      CommandTag(body[0]),
		TargetID: binary.LittleEndian.Uint64(body[1:9]),
		Payload:  body[commandBodyLen:],
	}, nil
}

// Encode appends the encoded command frame body to dst.
func (c Command) Encode(dst []byte) []byte {
	dst = append(dst, uint8(c.Tag))
	dst = binary.LittleEndian.AppendUint64(dst, c.TargetID)
	dst = append(dst, c.Payload...)
	return dst
}

// otaStartPayloadLen is image_size(4) + chunk_count(4) + hash(32).
const otaStartPayloadLen = 4 + 4 + 32

// OtaStartPayload is the body of an OtaStart command.
type OtaStartPayload struct {
	ImageSize  uint32
	ChunkCount uint32
	Hash       [32]byte
}

// DecodeOtaStartPayload parses the payload of an OtaStart command.
func DecodeOtaStartPayload(payload []byte) (OtaStartPayload, error) {
	if len(payload) < otaStartPayloadLen {
		return OtaStartPayload{}, ErrShortBuffer
	}
	var p OtaStartPayload
	p.ImageSize = binary.LittleEndian.Uint32(payload[0:4])
	p.ChunkCount = binary.LittleEndian.Uint32(payload[4:8])
	copy(p.Hash[:], payload[8:40])
	return p, nil
}

// Encode appends the encoded OtaStart payload to dst.
func (p OtaStartPayload) Encode(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, p.ImageSize)
	dst = binary.LittleEndian.AppendUint32(dst, p.ChunkCount)
	dst = append(dst, p.Hash[:]...)
	return dst
}

// otaChunkPayloadFixedLen is index(4) + chunk_size(1); the chunk bytes
// themselves follow, padded to config.ChunkSize on the wire.
const otaChunkPayloadFixedLen = 4 + 1

// OtaChunkPayload is the body of an OtaChunk command.
type OtaChunkPayload struct {
	Index     uint32
	ChunkSize uint8
	Chunk     [128]byte
}

// DecodeOtaChunkPayload parses the payload of an OtaChunk command. The wire
// format always carries a full 128-byte chunk slot; ChunkSize says how many
// leading bytes of it are meaningful.
func DecodeOtaChunkPayload(payload []byte) (OtaChunkPayload, error) {
	if len(payload) < otaChunkPayloadFixedLen+128 {
		return OtaChunkPayload{}, ErrShortBuffer
	}
	var p OtaChunkPayload
	p.Index = binary.LittleEndian.Uint32(payload[0:4])
	p.ChunkSize = payload[4]
	copy(p.Chunk[:], payload[5:5+128])
	if int(p.ChunkSize) > len(p.Chunk) {
		return OtaChunkPayload{}, fmt.Errorf("wire: chunk_size %d exceeds chunk slot", p.ChunkSize)
	}
	return p, nil
}

// Encode appends the encoded OtaChunk payload to dst.
func (p OtaChunkPayload) Encode(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, p.Index)
	dst = append(dst, p.ChunkSize)
	dst = append(dst, p.Chunk[:]...)
	return dst
}
