//go:build tinygo

// Command supervisor is S's TinyGo entry point: the secure image that
// runs the boot dispatcher, owns the experiment state machine, and
// exposes the non-secure-callable gateway the user image calls across
// the trust boundary.
//
// Grounded on the common firmware init-then-loop shape: a fixed,
// ordered setup sequence (here, bootseq.Run) followed by an event loop
// that never returns.
package main

import (
	"log/slog"
	"unsafe"

	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/boardhw"
	"github.com/openswarm-eu/swarmit/internal/bootseq"
	"github.com/openswarm-eu/swarmit/internal/deviceid"
	"github.com/openswarm-eu/swarmit/internal/flashmem"
	"github.com/openswarm-eu/swarmit/internal/gateway"
	"github.com/openswarm-eu/swarmit/internal/logbridge"
	"github.com/openswarm-eu/swarmit/internal/mailbox"
	"github.com/openswarm-eu/swarmit/internal/supervisor"
	"github.com/openswarm-eu/swarmit/internal/wire"
	"github.com/openswarm-eu/swarmit/version"
)

// TODO(board bring-up): this control block must live at the fixed
// shared-RAM address cmd/netcore's linker script reserves for it, the
// same gap noted in cmd/netcore/main.go. Both images only truly share one
// *mailbox.ControlBlock in the host-testable simulation.
var cb = mailbox.New()

var (
	primaryWD   = boardhw.NewPrimaryWatchdog()
	secondaryWD = boardhw.NewSecondaryWatchdog()
)

// mailboxRNG proxies gateway.RandomSource to N's hardware RNG over the
// mailbox: the peripheral lives on the network core, not here.
type mailboxRNG struct{ cb *mailbox.ControlBlock }

func (r mailboxRNG) Init() error {
	return r.cb.Call(mailbox.RngInit, nil).Err
}

func (r mailboxRNG) Read() (uint32, error) {
	result := r.cb.Call(mailbox.RngRead, nil)
	return result.RandomWord, result.Err
}

// gw is the non-secure-callable surface, constructed once at package init
// so the //export veneers below — the actual CMSE-style entry points the
// non-secure user image branches into — have something to call into.
var gw = gateway.New(cb, primaryWD, mailboxRNG{cb: cb}, deviceid.FICR{},
	gateway.MemoryRegion{Start: 0, Size: config.SecureRAMSize},
	gateway.MemoryRegion{Start: 0, Size: config.SecureFlashSize})

// The exported functions below are the secure gateway veneers: the only
// entry points the non-secure user image may branch into. Each takes raw
// pointer/length pairs because CMSE entry points cross an ABI boundary a
// Go slice cannot cross directly; gw itself performs the bounds check
// against secure memory before touching anything the pointer names.

//export swarmit_reload_primary_watchdog
func swarmitReloadPrimaryWatchdog() {
	gw.ReloadPrimaryWatchdog()
}

//export swarmit_send_data_packet
func swarmitSendDataPacket(ptr, length uint32) {
	gw.SendDataPacket(ptr, unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length))
}

//export swarmit_send_raw
func swarmitSendRaw(ptr, length uint32) {
	gw.SendRaw(ptr, unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length))
}

//export swarmit_log_data
func swarmitLogData(ptr, length uint32) {
	gw.LogData(ptr, unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length))
}

//export swarmit_gpio_event
func swarmitGpioEvent(port, pin, value uint8) {
	gw.GpioEvent(port, pin, value)
}

//export swarmit_rng_init
func swarmitRngInit() {
	gw.RngInit()
}

//export swarmit_rng_read
func swarmitRngRead() uint32 {
	v, _ := gw.RngRead()
	return v
}

//export swarmit_read_device_id
func swarmitReadDeviceID() uint64 {
	return gw.ReadDeviceID()
}

func main() {
	id := deviceid.FICR{}.ID()
	emitter := mailbox.NewRadioEmitter(cb, id)
	logger := slog.New(logbridge.NewHandler(boardhw.Console(), id, emitter, logbridge.SystemClock{}, nil))
	logger.Info("supervisor: booting", "version", version.Version, "build", version.BuildMarker)

	const totalFlashSize = 1024 * 1024 // nRF5340 application core flash
	const nvmcPageSize = 4096
	nvm := flashmem.NewNRFNVM(0, nvmcPageSize, totalFlashSize)
	writer := flashmem.NewWriter(nvm, flashmem.NonSecureBase)
	super := supervisor.New(id, writer, cb, emitter)

	hooks := bootseq.Hooks{
		ConfigureSecondaryWatchdog: func() error {
			return secondaryWD.Configure(config.SecondaryWatchdogTimeout())
		},
		ConfigureMPU:           boardhw.ConfigureMPU,
		MapNonSecureInterrupts: boardhw.MapNonSecureInterrupts,
		ReleaseNetworkCore:     boardhw.ReleaseNetworkCore,
		WaitNetReady: func() error {
			for !cb.NetReady() {
			}
			return nil
		},
		InitRadio: func() error {
			if err := cb.Call(mailbox.RadioInit, nil).Err; err != nil {
				return err
			}
			return cb.Call(mailbox.RadioSetFreq, func(sub *mailbox.RadioSubrecord) {
				sub.Channel = config.RadioChannel()
			}).Err
		},
		ReadAndClearResetCause: boardhw.ReadAndClearResetCause,
		EnterOtaLoop: func() error {
			runSupervisorLoop(super, logger)
			return nil
		},
		JumpToUserImage: func() error {
			if err := primaryWD.Configure(config.PrimaryWatchdogTimeout()); err != nil {
				return err
			}
			if err := primaryWD.Start(); err != nil {
				return err
			}
			return boardhw.JumpToUserImage(flashmem.NonSecureBase)
		},
	}

	regions := bootseq.MemoryMap(config.SecureFlashSize, config.SecureRAMSize, config.NonSecureCallableSize)

	go watchStartExperiment(cb, logger)
	go watchStop(cb, secondaryWD, logger)

	if _, err := bootseq.Run(hooks, regions); err != nil {
		logger.Error("supervisor: boot dispatch failed", "err", err)
	}
}

// watchStartExperiment resets the device once a Start command has been
// accepted, so the boot dispatcher re-runs and, finding no watchdog in
// the reset cause, jumps straight into the user image.
func watchStartExperiment(cb *mailbox.ControlBlock, logger *slog.Logger) {
	<-cb.StartExperimentCh()
	logger.Info("supervisor: start accepted, resetting into user image")
	boardhw.SystemReset()
}

// watchStop arms the secondary watchdog once a Stop command is accepted.
// Its expiry forcibly tears down a running user image that does not stop
// cooperatively within the configured window.
func watchStop(cb *mailbox.ControlBlock, wd boardhw.SecondaryWatchdog, logger *slog.Logger) {
	<-cb.StopCh()
	logger.Info("supervisor: stop accepted, arming secondary watchdog")
	if err := wd.Start(); err != nil {
		logger.Error("supervisor: arm secondary watchdog", "err", err)
	}
}

// runSupervisorLoop is the steady-state loop the boot dispatcher enters
// whenever it does not jump to the user image: service command frames and
// forward buffered log/GPIO events. It does not pet the primary watchdog,
// which is only started on the path that jumps into the user image.
func runSupervisorLoop(super *supervisor.Supervisor, logger *slog.Logger) {
	for {
		select {
		case <-cb.CommandCh():
			payload, ok := cb.TakeCommand()
			if !ok {
				continue
			}
			cmd, err := wire.DecodeCommand(payload)
			if err != nil {
				logger.Error("supervisor: decode command", "err", err)
				continue
			}
			if err := super.HandleCommand(cmd); err != nil {
				logger.Error("supervisor: handle command", "tag", cmd.Tag, "err", err)
			}
		case <-cb.LogCh():
			forwardLog(super)
		case <-cb.GpioCh():
			forwardGpio(super)
		}
	}
}

func forwardLog(super *supervisor.Supervisor) {
	payload, ok := cb.TakeLog()
	if !ok {
		return
	}
	body := wire.LogEventNotification{
		DeviceID:  super.DeviceID,
		Timestamp: logbridge.SystemClock{}.Now(),
		Log:       payload,
	}.Encode(nil)
	mailbox.NewRadioEmitter(cb, super.DeviceID).Emit(body)
}

func forwardGpio(super *supervisor.Supervisor) {
	for _, ev := range cb.TakeGpioEvents() {
		body := wire.GpioEventNotification{
			DeviceID:  super.DeviceID,
			Timestamp: logbridge.SystemClock{}.Now(),
			Port:      ev.Port,
			Pin:       ev.Pin,
			Value:     ev.Value,
		}.Encode(nil)
		mailbox.NewRadioEmitter(cb, super.DeviceID).Emit(body)
	}
}
