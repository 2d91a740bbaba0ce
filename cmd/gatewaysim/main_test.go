package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/hostlink"
	"github.com/openswarm-eu/swarmit/internal/wire"
)

func TestParseDeviceID(t *testing.T) {
	id, err := parseDeviceID("broadcast")
	require.NoError(t, err)
	assert.Equal(t, config.BroadcastID, id)

	id, err = parseDeviceID("0x2a")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2a), id)

	id, err = parseDeviceID("2a")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2a), id)
}

// fakeDevice answers gatewaysim commands on the far end of a hostlink
// pipe the way a real device's gateway would, just enough to exercise
// the host-side session logic end to end without any hardware.
type fakeDevice struct {
	link     *hostlink.Link
	deviceID uint64
	status   uint8
	chunks   [][]byte
}

func newFakeDevice(phy net.Conn, deviceID uint64) *fakeDevice {
	return &fakeDevice{link: hostlink.New(phy), deviceID: deviceID}
}

func (d *fakeDevice) run(t *testing.T) {
	t.Helper()
	go func() {
		for raw := range d.link.Recv() {
			h, body, err := wire.DecodeHeader(raw)
			if err != nil || len(body) == 0 {
				continue
			}
			cmd, err := wire.DecodeCommand(body)
			if err != nil {
				continue
			}
			reply := wire.EncodeHeader(nil, wire.Header{
				Version:     wire.ProtocolVersion,
				Type:        wire.SwarmitPacketType,
				Destination: h.Source,
				Source:      d.deviceID,
			})
			switch cmd.Tag {
			case wire.CmdStatus:
				reply = wire.StatusNotification{DeviceID: d.deviceID, Status: d.status}.Encode(reply)
			case wire.CmdOtaStart:
				reply = wire.OtaStartAckNotification{DeviceID: d.deviceID}.Encode(reply)
			case wire.CmdOtaChunk:
				p, _ := wire.DecodeOtaChunkPayload(cmd.Payload)
				d.chunks = append(d.chunks, append([]byte(nil), p.Chunk[:p.ChunkSize]...))
				reply = wire.OtaChunkAckNotification{DeviceID: d.deviceID, Index: p.Index}.Encode(reply)
			default:
				continue
			}
			d.link.Send(reply)
		}
	}()
}

func TestSessionStatusRoundTrip(t *testing.T) {
	hostConn, deviceConn := net.Pipe()
	defer hostConn.Close()
	defer deviceConn.Close()

	dev := newFakeDevice(deviceConn, 0x01)
	dev.status = 1 // Running
	dev.run(t)

	s := &session{link: hostlink.New(hostConn), hostID: 0x00, timeout: time.Second}
	require.NoError(t, s.status(0x01))
}

func TestSessionOtaPushSendsAllChunks(t *testing.T) {
	hostConn, deviceConn := net.Pipe()
	defer hostConn.Close()
	defer deviceConn.Close()

	dev := newFakeDevice(deviceConn, 0x01)
	dev.run(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "fw.bin")
	image := make([]byte, config.ChunkSize*3+17)
	for i := range image {
		image[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, image, 0o644))

	s := &session{link: hostlink.New(hostConn), hostID: 0x00, timeout: time.Second}
	require.NoError(t, s.otaPush(0x01, path, true))

	require.Len(t, dev.chunks, 4)
	var reassembled []byte
	for _, c := range dev.chunks {
		reassembled = append(reassembled, c...)
	}
	assert.Equal(t, image, reassembled)
}
