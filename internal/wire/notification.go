package wire

import (
	"encoding/binary"
	"fmt"
)

// NotificationTag identifies the kind of a device→host notification frame
// body.
type NotificationTag uint8

const (
	NotifyStatus      NotificationTag = 0x85
	NotifyOtaStartAck NotificationTag = 0x86
	NotifyOtaChunkAck NotificationTag = 0x87
	NotifyGpioEvent   NotificationTag = 0x88
	NotifyLogEvent    NotificationTag = 0x89
)

func (t NotificationTag) String() string {
	switch t {
	case NotifyStatus:
		return "Status"
	case NotifyOtaStartAck:
		return "OtaStartAck"
	case NotifyOtaChunkAck:
		return "OtaChunkAck"
	case NotifyGpioEvent:
		return "GpioEvent"
	case NotifyLogEvent:
		return "LogEvent"
	default:
		return fmt.Sprintf("NotificationTag(0x%02x)", uint8(t))
	}
}

// StatusNotification is the body of a Status notification (tag 0x85).
type StatusNotification struct {
	DeviceID uint64
	Status   uint8
}

// Encode appends the encoded frame body (tag included) to dst.
func (n StatusNotification) Encode(dst []byte) []byte {
	dst = append(dst, uint8(NotifyStatus))
	dst = binary.LittleEndian.AppendUint64(dst, n.DeviceID)
	dst = append(dst, n.Status)
	return dst
}

// DecodeStatusNotification parses a Status notification body, tag included.
func DecodeStatusNotification(body []byte) (StatusNotification, error) {
	if len(body) < 1+8+1 || NotificationTag(body[0]) != NotifyStatus {
		return StatusNotification{}, ErrUnknownTag
	}
	return StatusNotification{
		DeviceID: binary.LittleEndian.Uint64(body[1:9]),
		Status:   body[9],
	}, nil
}

// OtaStartAckNotification is the body of an OtaStartAck notification (tag 0x86).
type OtaStartAckNotification struct {
	DeviceID uint64
}

func (n OtaStartAckNotification) Encode(dst []byte) []byte {
	dst = append(dst, uint8(NotifyOtaStartAck))
	dst = binary.LittleEndian.AppendUint64(dst, n.DeviceID)
	return dst
}

func DecodeOtaStartAckNotification(body []byte) (OtaStartAckNotification, error) {
	if len(body) < 1+8 || NotificationTag(body[0]) != NotifyOtaStartAck {
		return OtaStartAckNotification{}, ErrUnknownTag
	}
	return OtaStartAckNotification{DeviceID: binary.LittleEndian.Uint64(body[1:9])}, nil
}

// OtaChunkAckNotification is the body of an OtaChunkAck notification (tag 0x87).
type OtaChunkAckNotification struct {
	DeviceID uint64
	Index    uint32
}

func (n OtaChunkAckNotification) Encode(dst []byte) []byte {
	dst = append(dst, uint8(NotifyOtaChunkAck))
	dst = binary.LittleEndian.AppendUint64(dst, n.DeviceID)
	dst = binary.LittleEndian.AppendUint32(dst, n.Index)
	return dst
}

func DecodeOtaChunkAckNotification(body []byte) (OtaChunkAckNotification, error) {
	if len(body) < 1+8+4 || NotificationTag(body[0]) != NotifyOtaChunkAck {
		return OtaChunkAckNotification{}, ErrUnknownTag
	}
	return OtaChunkAckNotification{
		DeviceID: binary.LittleEndian.Uint64(body[1:9]),
		Index:    binary.LittleEndian.Uint32(body[9:13]),
	}, nil
}

// GpioEventNotification is the body of a GpioEvent notification (tag 0x88).
type GpioEventNotification struct {
	DeviceID  uint64
	Timestamp uint32
	Port      uint8
	Pin       uint8
	Value     uint8
}

func (n GpioEventNotification) Encode(dst []byte) []byte {
	dst = append(dst, uint8(NotifyGpioEvent))
	dst = binary.LittleEndian.AppendUint64(dst, n.DeviceID)
	dst = binary.LittleEndian.AppendUint32(dst, n.Timestamp)
	dst = append(dst, n.Port, n.Pin, n.Value)
	return dst
}

func DecodeGpioEventNotification(body []byte) (GpioEventNotification, error) {
	if len(body) < 1+8+4+3 || NotificationTag(body[0]) != NotifyGpioEvent {
		return GpioEventNotification{}, ErrUnknownTag
	}
	return GpioEventNotification{
		DeviceID:  binary.LittleEndian.Uint64(body[1:9]),
		Timestamp: binary.LittleEndian.Uint32(body[9:13]),
		Port:      body[13],
		Pin:       body[14],
		Value:     body[15],
	}, nil
}

// LogEventNotification is the body of a LogEvent notification (tag 0x89).
// Log is bounded by a one-byte length prefix (max 255 bytes).
type LogEventNotification struct {
	DeviceID  uint64
	Timestamp uint32
	Log       []byte
}

func (n LogEventNotification) Encode(dst []byte) []byte {
	dst = append(dst, uint8(NotifyLogEvent))
	dst = binary.LittleEndian.AppendUint64(dst, n.DeviceID)
	dst = binary.LittleEndian.AppendUint32(dst, n.Timestamp)
	logLen := len(n.Log)
	if logLen > 255 {
		logLen = 255
	}
	dst = append(dst, uint8(logLen))
	dst = append(dst, n.Log[:logLen]...)
	return dst
}

func DecodeLogEventNotification(body []byte) (LogEventNotification, error) {
	if len(body) < 1+8+4+1 || NotificationTag(body[0]) != NotifyLogEvent {
		return LogEventNotification{}, ErrUnknownTag
	}
	logLen := int(body[13])
	if len(body) < 14+logLen {
		return LogEventNotification{}, ErrShortBuffer
	}
	return LogEventNotification{
		DeviceID:  binary.LittleEndian.Uint64(body[1:9]),
		Timestamp: binary.LittleEndian.Uint32(body[9:13]),
		Log:       body[14 : 14+logLen],
	}, nil
}
