package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openswarm-eu/swarmit/internal/wire"
)

func TestRadioEmitterEmitPostsBroadcastFrame(t *testing.T) {
	cb := New()
	em := NewRadioEmitter(cb, 0x0102030405060708)

	done := make(chan RadioSubrecord, 1)
	go func() {
		<-cb.RequestCh()
		cb.ServiceRequest(func(tag RequestTag, sub *RadioSubrecord) {
			assert.Equal(t, RadioTx, tag)
			done <- *sub
		})
	}()

	em.Emit([]byte{0x85, 0x00})

	select {
	case sub := <-done:
		h, body, err := wire.DecodeHeader(sub.Buf)
		assert.NoError(t, err)
		assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), h.Destination)
		assert.Equal(t, uint64(0x0102030405060708), h.Source)
		assert.Equal(t, []byte{0x85, 0x00}, body)
	case <-time.After(time.Second):
		t.Fatal("expected Emit to post a RadioTx request")
	}
}
