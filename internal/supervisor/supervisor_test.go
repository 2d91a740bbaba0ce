package supervisor

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/flashmem"
	"github.com/openswarm-eu/swarmit/internal/otacore"
	"github.com/openswarm-eu/swarmit/internal/wire"
)

type fakeMailbox struct {
	startExperiment, stop, otaStart int
}

func (f *fakeMailbox) RaiseStartExperiment() { f.startExperiment++ }
func (f *fakeMailbox) RaiseStop()            { f.stop++ }
func (f *fakeMailbox) RaiseOtaStart()        { f.otaStart++ }

type fakeEmitter struct {
	notifications [][]byte
}

func (f *fakeEmitter) Emit(body []byte) {
	f.notifications = append(f.notifications, append([]byte(nil), body...))
}

func newTestSupervisor() (*Supervisor, *fakeMailbox, *fakeEmitter) {
	nvm := flashmem.NewSimNVM(32*1024, 256)
	writer := flashmem.NewWriter(nvm, flashmem.NonSecureBase)
	mb := &fakeMailbox{}
	em := &fakeEmitter{}
	return New(0x1122334455667788, writer, mb, em), mb, em
}

func imageOf(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func chunksOf(img []byte) [][]byte {
	var out [][]byte
	for i := 0; i < len(img); i += config.ChunkSize {
		end := i + config.ChunkSize
		if end > len(img) {
			end = len(img)
		}
		out = append(out, img[i:end])
	}
	return out
}

func otaStartCommand(deviceID uint64, imageSize uint32, hash [32]byte, chunkCount uint32) wire.Command {
	payload := wire.OtaStartPayload{ImageSize: imageSize, ChunkCount: chunkCount, Hash: hash}.Encode(nil)
	return wire.Command{Tag: wire.CmdOtaStart, TargetID: deviceID, Payload: payload}
}

func otaChunkCommand(deviceID uint64, index uint32, chunk []byte) wire.Command {
	var buf [128]byte
	copy(buf[:], chunk)
	payload := wire.OtaChunkPayload{Index: index, ChunkSize: uint8(len(chunk)), Chunk: buf}.Encode(nil)
	return wire.Command{Tag: wire.CmdOtaChunk, TargetID: deviceID, Payload: payload}
}

func TestStartPermittedOnlyFromReady(t *testing.T) {
	s, mb, _ := newTestSupervisor()

	assert.NoError(t, s.HandleCommand(wire.Command{Tag: wire.CmdStart, TargetID: s.DeviceID}))
	assert.Equal(t, 1, mb.startExperiment)
	assert.Equal(t, Ready, s.Status(), "status stays Ready until the ensuing reset")

	s.status = Programming
	assert.NoError(t, s.HandleCommand(wire.Command{Tag: wire.CmdStart, TargetID: s.DeviceID}))
	assert.Equal(t, 1, mb.startExperiment, "Start while Programming is ignored")
}

func TestStopPermittedFromRunningAndProgramming(t *testing.T) {
	s, mb, _ := newTestSupervisor()

	s.status = Ready
	assert.NoError(t, s.HandleCommand(wire.Command{Tag: wire.CmdStop, TargetID: s.DeviceID}))
	assert.Equal(t, 0, mb.stop, "Stop while Ready is ignored")
	assert.Equal(t, Ready, s.Status())

	s.status = Running
	assert.NoError(t, s.HandleCommand(wire.Command{Tag: wire.CmdStop, TargetID: s.DeviceID}))
	assert.Equal(t, 1, mb.stop)
	assert.Equal(t, Stopping, s.Status())

	s.status = Programming
	assert.NoError(t, s.HandleCommand(wire.Command{Tag: wire.CmdStop, TargetID: s.DeviceID}))
	assert.Equal(t, 2, mb.stop)
	assert.Equal(t, Stopping, s.Status())
}

func TestStatusCommandEmitsNotificationWithoutStateChange(t *testing.T) {
	s, _, em := newTestSupervisor()
	s.status = Running

	assert.NoError(t, s.HandleCommand(wire.Command{Tag: wire.CmdStatus, TargetID: s.DeviceID}))
	assert.Equal(t, Running, s.Status())

	want := wire.StatusNotification{DeviceID: s.DeviceID, Status: Running.Byte()}.Encode(nil)
	assert.Equal(t, [][]byte{want}, em.notifications)
}

func TestOtaHappyPathReachesReadyWithHashMatch(t *testing.T) {
	s, mb, em := newTestSupervisor()
	img := imageOf(300)
	hash := sha256.Sum256(img)
	chunks := chunksOf(img)

	assert.NoError(t, s.HandleCommand(otaStartCommand(s.DeviceID, uint32(len(img)), hash, uint32(len(chunks)))))
	assert.Equal(t, Programming, s.Status())
	assert.Equal(t, 1, mb.otaStart)
	assert.Len(t, em.notifications, 1)

	for i, c := range chunks {
		assert.NoError(t, s.HandleCommand(otaChunkCommand(s.DeviceID, uint32(i), c)))
	}

	assert.Equal(t, Ready, s.Status())
	assert.Equal(t, otacore.MatchYes, s.HashesMatch())
	assert.Equal(t, len(chunks)+1, len(em.notifications))

	readBack, err := s.writer.ReadRange(0, uint32(len(img)))
	assert.NoError(t, err)
	assert.Equal(t, img, readBack)
}

func TestOtaChunkIgnoredOutsideProgramming(t *testing.T) {
	s, _, em := newTestSupervisor()
	assert.NoError(t, s.HandleCommand(otaChunkCommand(s.DeviceID, 0, []byte("x"))))
	assert.Empty(t, em.notifications)
}

func TestOtaStartIgnoredWhileProgramming(t *testing.T) {
	s, mb, _ := newTestSupervisor()
	img := imageOf(200)
	hash := sha256.Sum256(img)

	assert.NoError(t, s.HandleCommand(otaStartCommand(s.DeviceID, uint32(len(img)), hash, 2)))
	assert.Equal(t, 1, mb.otaStart)

	assert.NoError(t, s.HandleCommand(otaStartCommand(s.DeviceID, uint32(len(img)), hash, 2)))
	assert.Equal(t, 1, mb.otaStart, "a second OtaStart while Programming must be ignored")
}

func TestDuplicateChunkIsAckedAgainWithoutCorruptingResult(t *testing.T) {
	s, _, em := newTestSupervisor()
	img := imageOf(300)
	hash := sha256.Sum256(img)
	chunks := chunksOf(img)

	assert.NoError(t, s.HandleCommand(otaStartCommand(s.DeviceID, uint32(len(img)), hash, uint32(len(chunks)))))
	assert.NoError(t, s.HandleCommand(otaChunkCommand(s.DeviceID, 0, chunks[0])))
	assert.NoError(t, s.HandleCommand(otaChunkCommand(s.DeviceID, 0, chunks[0])))
	for i := 1; i < len(chunks); i++ {
		assert.NoError(t, s.HandleCommand(otaChunkCommand(s.DeviceID, uint32(i), chunks[i])))
	}

	assert.Equal(t, Ready, s.Status())
	assert.Equal(t, otacore.MatchYes, s.HashesMatch())
	assert.Equal(t, len(chunks)+2, len(em.notifications), "duplicate chunk still acks, just doesn't rehash")
}

func TestMismatchedDeviceIDIgnored(t *testing.T) {
	s, mb, _ := newTestSupervisor()
	cmd := wire.Command{Tag: wire.CmdStart, TargetID: s.DeviceID + 1}
	assert.NoError(t, s.HandleCommand(cmd))
	assert.Equal(t, 0, mb.startExperiment)
}

func TestBroadcastIDAlwaysMatches(t *testing.T) {
	s, mb, _ := newTestSupervisor()
	cmd := wire.Command{Tag: wire.CmdStart, TargetID: config.BroadcastID}
	assert.NoError(t, s.HandleCommand(cmd))
	assert.Equal(t, 1, mb.startExperiment)
}
