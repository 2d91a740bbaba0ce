package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCallRoundTripsThroughServiceRequest(t *testing.T) {
	cb := New()

	done := make(chan struct{})
	go func() {
		<-cb.RequestCh()
		cb.ServiceRequest(func(tag RequestTag, sub *RadioSubrecord) {
			assert.Equal(t, RadioSetFreq, tag)
			assert.Equal(t, uint8(26), sub.Channel)
			sub.Status = 0
		})
		close(done)
	}()

	result := cb.Call(RadioSetFreq, func(sub *RadioSubrecord) {
		sub.Channel = 26
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServiceRequest never observed the request")
	}
	assert.Equal(t, uint8(0), result.Status)
}

func TestLatchCommandThenTake(t *testing.T) {
	cb := New()
	cb.LatchCommand([]byte{0x80, 0x01, 0x02})

	select {
	case <-cb.CommandCh():
	default:
		t.Fatal("expected command mailbox to be raised")
	}

	payload, ok := cb.TakeCommand()
	assert.True(t, ok)
	assert.Equal(t, []byte{0x80, 0x01, 0x02}, payload)

	_, ok = cb.TakeCommand()
	assert.False(t, ok)
}

func TestMailboxSignalsCoalesce(t *testing.T) {
	cb := New()
	cb.LatchUserPDU([]byte("first"))
	cb.LatchUserPDU([]byte("second"))

	count := 0
	for {
		select {
		case <-cb.RadioRxCh():
			count++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, count, "two raises before a single drain must coalesce into one delivery")

	payload, ok := cb.TakeUserPDU()
	assert.True(t, ok)
	assert.Equal(t, []byte("second"), payload, "receiver must see the latest shared state, not a queued history")
}

func TestNetReadyDefaultsFalse(t *testing.T) {
	cb := New()
	assert.False(t, cb.NetReady())
	cb.SetNetReady()
	assert.True(t, cb.NetReady())
}

func TestRaiseStartExperimentSignalsChannel(t *testing.T) {
	cb := New()
	cb.RaiseStartExperiment()
	select {
	case <-cb.StartExperimentCh():
	default:
		t.Fatal("expected start-experiment mailbox to be raised")
	}
}

func TestRaiseStopSignalsChannel(t *testing.T) {
	cb := New()
	cb.RaiseStop()
	select {
	case <-cb.StopCh():
	default:
		t.Fatal("expected stop mailbox to be raised")
	}
}

func TestRaiseOtaStartSignalsChannel(t *testing.T) {
	cb := New()
	cb.RaiseOtaStart()
	select {
	case <-cb.OtaStartCh():
	default:
		t.Fatal("expected ota-start mailbox to be raised")
	}
}

func TestLatchLogAccumulates(t *testing.T) {
	cb := New()
	cb.LatchLog([]byte("hello "))
	cb.LatchLog([]byte("world"))

	payload, ok := cb.TakeLog()
	assert.True(t, ok)
	assert.Equal(t, []byte("hello world"), payload)

	_, ok = cb.TakeLog()
	assert.False(t, ok)
}
