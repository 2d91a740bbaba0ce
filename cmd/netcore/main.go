//go:build tinygo

// Command netcore is N's TinyGo entry point: the network core's firmware
// image. It owns the radio and the hardware RNG outright and does
// nothing else — every decision about what to do with a received frame,
// or when to stop forwarding one, is driven by S over the shared control
// block.
//
// Grounded on the same init-then-loop shape cmd/supervisor uses, cut
// down to the one responsibility N actually has.
package main

import (
	"log/slog"
	"machine"
	"time"

	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/deviceid"
	"github.com/openswarm-eu/swarmit/internal/mailbox"
	"github.com/openswarm-eu/swarmit/internal/netsvc"
	"github.com/openswarm-eu/swarmit/internal/radio"
)

func main() {
	time.Sleep(50 * time.Millisecond) // let the console settle before the first log line

	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("netcore: starting")

	id := deviceid.FICR{}.ID()

	// TODO(board bring-up): place this control block at the fixed
	// shared-RAM address S's linker script reserves for it, rather than
	// N's own local heap. Expressing that placement is a board-specific
	// linker directive, not something portable Go declares; until that
	// wiring lands, cmd/netcore and cmd/supervisor only truly share a
	// control block in the host-testable simulation (netsvc_test.go,
	// supervisor_test.go), where both sides run in one process.
	cb := mailbox.New()

	r := radio.NewNRFRadio()
	if err := r.Init(); err != nil {
		logger.Error("netcore: radio init failed", "err", err)
	}
	if err := r.SetFrequency(config.RadioChannel()); err != nil {
		logger.Error("netcore: set frequency failed", "err", err)
	}

	svc := netsvc.New(id, r, cb).WithRNG(radio.NewNRFRNG())

	cb.SetNetReady()
	logger.Info("netcore: ready")

	stop := make(chan struct{})
	svc.Run(stop)
}
