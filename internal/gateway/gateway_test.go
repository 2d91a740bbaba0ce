package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openswarm-eu/swarmit/internal/mailbox"
)

type fakeWatchdog struct{ pets int }

func (w *fakeWatchdog) Pet() { w.pets++ }

type fakeRNG struct {
	inited bool
	word   uint32
}

func (r *fakeRNG) Init() error          { r.inited = true; return nil }
func (r *fakeRNG) Read() (uint32, error) { return r.word, nil }

type fakeDeviceID struct{ id uint64 }

func (d *fakeDeviceID) ID() uint64 { return d.id }

func newTestGateway() (*Gateway, *fakeWatchdog, *fakeRNG, *mailbox.ControlBlock) {
	cb := mailbox.New()
	wdt := &fakeWatchdog{}
	rng := &fakeRNG{word: 42}
	id := &fakeDeviceID{id: 0x1234}
	secureRAM := MemoryRegion{Start: 0, Size: 32 * 1024}
	secureFlash := MemoryRegion{Start: 32 * 1024, Size: 16 * 1024}
	return New(cb, wdt, rng, id, secureRAM, secureFlash), wdt, rng, cb
}

func TestReloadPrimaryWatchdogPets(t *testing.T) {
	g, wdt, _, _ := newTestGateway()
	g.ReloadPrimaryWatchdog()
	assert.Equal(t, 1, wdt.pets)
}

func TestReadDeviceID(t *testing.T) {
	g, _, _, _ := newTestGateway()
	assert.Equal(t, uint64(0x1234), g.ReadDeviceID())
}

func TestRngInitAndRead(t *testing.T) {
	g, _, rng, _ := newTestGateway()
	g.RngInit()
	assert.True(t, rng.inited)
	word, err := g.RngRead()
	assert.NoError(t, err)
	assert.Equal(t, uint32(42), word)
}

func TestLogDataRejectsPointerIntoSecureRAM(t *testing.T) {
	g, _, _, cb := newTestGateway()
	g.LogData(100, []byte("leaked"))
	_, ok := cb.TakeLog()
	assert.False(t, ok, "a pointer inside secure RAM must be rejected as a no-op")
}

func TestLogDataAcceptsNonSecureBuffer(t *testing.T) {
	g, _, _, cb := newTestGateway()
	g.LogData(64*1024, []byte("hello"))
	payload, ok := cb.TakeLog()
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), payload)
}

func TestLogDataRejectsOversizeLength(t *testing.T) {
	g, _, _, cb := newTestGateway()
	oversized := make([]byte, 1000)
	g.LogData(64*1024, oversized)
	_, ok := cb.TakeLog()
	assert.False(t, ok)
}

func TestGpioEventLatchesForSupervisorForwarding(t *testing.T) {
	g, _, _, cb := newTestGateway()
	g.GpioEvent(1, 2, 1)

	select {
	case <-cb.GpioCh():
	default:
		t.Fatal("expected GPIO mailbox to be raised")
	}

	events := cb.TakeGpioEvents()
	assert.Equal(t, []mailbox.GpioEvent{{Port: 1, Pin: 2, Value: 1}}, events)
}

func TestRxISRReturnsLatchedUserPDU(t *testing.T) {
	g, _, _, cb := newTestGateway()
	cb.LatchUserPDU([]byte("data"))

	payload, ok := g.RxISR()
	assert.True(t, ok)
	assert.Equal(t, []byte("data"), payload)

	_, ok = g.RxISR()
	assert.False(t, ok)
}
