// Command gatewaysim is a host-side development and bring-up tool that
// drives the wire protocol against a real device over a serial port; it
// has no mode that runs against the in-memory simulated radio bus. It
// speaks the binary command/notification frames a production gateway
// would, rather than a line-oriented console protocol.
package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/openswarm-eu/swarmit/config"
	"github.com/openswarm-eu/swarmit/internal/hostlink"
	"github.com/openswarm-eu/swarmit/internal/supervisor"
	"github.com/openswarm-eu/swarmit/internal/wire"
)

func main() {
	port := pflag.StringP("port", "p", "", "Serial port device (e.g. /dev/ttyACM0)")
	baud := pflag.UintP("baud", "b", 115200, "Serial baud rate")
	deviceFlag := pflag.StringP("device", "d", "broadcast", "Target device id (hex) or \"broadcast\"")
	hostID := pflag.Uint64P("host-id", "s", 0, "Source id this tool presents itself as")
	timeout := pflag.DurationP("timeout", "t", 5*time.Second, "Response wait timeout")
	yes := pflag.BoolP("yes", "y", false, "Skip the OTA confirmation prompt")
	help := pflag.Bool("help", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gatewaysim -p <port> [flags] <command> [args]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  status                Query device status")
		fmt.Fprintln(os.Stderr, "  start                 Start the experiment")
		fmt.Fprintln(os.Stderr, "  stop                  Stop the experiment")
		fmt.Fprintln(os.Stderr, "  ota-push <image>      Push a firmware image")
		fmt.Fprintln(os.Stderr, "  repl                  Interactive frame REPL")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Flags:")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help || pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	target, err := parseDeviceID(*deviceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *port == "" {
		fmt.Fprintln(os.Stderr, "Error: --port is required")
		os.Exit(1)
	}

	phy, err := hostlink.Open(*port, *baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open %s: %v\n", *port, err)
		os.Exit(1)
	}
	link := hostlink.New(phy)
	defer link.Close()

	sess := &session{link: link, hostID: *hostID, timeout: *timeout}

	cmd := pflag.Arg(0)
	switch cmd {
	case "status":
		err = sess.status(target)
	case "start":
		err = sess.start(target)
	case "stop":
		err = sess.stop(target)
	case "ota-push":
		if pflag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: gatewaysim ota-push <image>")
			os.Exit(1)
		}
		err = sess.otaPush(target, pflag.Arg(1), *yes)
	case "repl":
		err = sess.repl(target)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		pflag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseDeviceID(s string) (uint64, error) {
	if s == "broadcast" || s == "" {
		return config.BroadcastID, nil
	}
	return strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
}

// session holds the state a single invocation of gatewaysim needs to
// exchange command/notification frames with one link.
type session struct {
	link    *hostlink.Link
	hostID  uint64
	timeout time.Duration
}

func (s *session) sendCommand(target uint64, tag wire.CommandTag, payload []byte) error {
	frame := wire.EncodeHeader(nil, wire.Header{
		Version:     wire.ProtocolVersion,
		Type:        wire.SwarmitPacketType,
		Destination: target,
		Source:      s.hostID,
	})
	frame = wire.Command{Tag: tag, TargetID: target, Payload: payload}.Encode(frame)
	return s.link.Send(frame)
}

// awaitNotification blocks for one frame addressed to this host (or
// broadcast) and returns its decoded notification tag and body.
func (s *session) awaitNotification() (wire.NotificationTag, []byte, error) {
	deadline := time.After(s.timeout)
	for {
		select {
		case raw, ok := <-s.link.Recv():
			if !ok {
				return 0, nil, fmt.Errorf("link closed")
			}
			h, body, err := wire.DecodeHeader(raw)
			if err != nil || h.Type != wire.SwarmitPacketType {
				continue
			}
			if !h.MatchesDestination(s.hostID, config.BroadcastID) {
				continue
			}
			if len(body) == 0 {
				continue
			}
			return wire.NotificationTag(body[0]), body, nil
		case <-deadline:
			return 0, nil, fmt.Errorf("timed out waiting for response")
		}
	}
}

func (s *session) status(target uint64) error {
	if err := s.sendCommand(target, wire.CmdStatus, nil); err != nil {
		return err
	}
	tag, body, err := s.awaitNotification()
	if err != nil {
		return err
	}
	if tag != wire.NotifyStatus {
		return fmt.Errorf("unexpected notification %s", tag)
	}
	notif, err := wire.DecodeStatusNotification(body)
	if err != nil {
		return err
	}
	fmt.Printf("device %016x: %s\n", notif.DeviceID, supervisor.Status(notif.Status))
	return nil
}

func (s *session) start(target uint64) error {
	return s.sendCommand(target, wire.CmdStart, nil)
}

func (s *session) stop(target uint64) error {
	return s.sendCommand(target, wire.CmdStop, nil)
}

// otaPush chunks image into config.ChunkSize-byte pieces, sends an
// OtaStart carrying the image's SHA-256, and streams OtaChunk frames,
// waiting for an ack after each one. Firmware images here are the raw
// binary the device flashes, not a packaging container.
func (s *session) otaPush(target uint64, path string, skipConfirm bool) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	hash := sha256.Sum256(image)
	chunkCount := config.ChunkCount(uint32(len(image)))

	fmt.Printf("Image: %s\n", path)
	fmt.Printf("Size: %d bytes, %d chunks\n", len(image), chunkCount)
	fmt.Printf("SHA256: %s\n", hex.EncodeToString(hash[:]))
	if target == config.BroadcastID {
		fmt.Println("Target: ALL DEVICES (broadcast)")
	} else {
		fmt.Printf("Target: %016x\n", target)
	}

	if !skipConfirm && !confirm("Proceed with OTA push?") {
		fmt.Println("Aborted.")
		return nil
	}

	startPayload := wire.OtaStartPayload{
		ImageSize:  uint32(len(image)),
		ChunkCount: chunkCount,
		Hash:       hash,
	}.Encode(nil)
	if err := s.sendCommand(target, wire.CmdOtaStart, startPayload); err != nil {
		return err
	}
	if tag, _, err := s.awaitNotification(); err != nil {
		return fmt.Errorf("ota-start: %w", err)
	} else if tag != wire.NotifyOtaStartAck {
		return fmt.Errorf("ota-start: unexpected notification %s", tag)
	}

	for i := uint32(0); i < chunkCount; i++ {
		var chunk wire.OtaChunkPayload
		chunk.Index = i
		start := int(i) * config.ChunkSize
		end := start + config.ChunkSize
		if end > len(image) {
			end = len(image)
		}
		chunk.ChunkSize = uint8(end - start)
		copy(chunk.Chunk[:], image[start:end])

		if err := s.sendCommand(target, wire.CmdOtaChunk, chunk.Encode(nil)); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		tag, body, err := s.awaitNotification()
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if tag != wire.NotifyOtaChunkAck {
			return fmt.Errorf("chunk %d: unexpected notification %s", i, tag)
		}
		ack, err := wire.DecodeOtaChunkAckNotification(body)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if ack.Index != i {
			return fmt.Errorf("chunk %d: device acked index %d", i, ack.Index)
		}
		fmt.Printf("\r[%3d%%] chunk %d/%d", (i+1)*100/chunkCount, i+1, chunkCount)
	}
	fmt.Println()
	fmt.Println("OTA push complete.")
	return nil
}

func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// repl is a line-buffered interactive session: each scanned line is
// parsed as a command name (status/start/stop) and sent immediately,
// with responses printed as they arrive on a background goroutine.
func (s *session) repl(target uint64) error {
	fmt.Println("gatewaysim REPL. Commands: status, start, stop, quit.")

	go func() {
		for raw := range s.link.Recv() {
			h, body, err := wire.DecodeHeader(raw)
			if err != nil || len(body) == 0 {
				continue
			}
			fmt.Printf("\n<- %s from %016x\n> ", wire.NotificationTag(body[0]), h.Source)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "status":
			if err := s.sendCommand(target, wire.CmdStatus, nil); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			}
		case "start":
			if err := s.sendCommand(target, wire.CmdStart, nil); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			}
		case "stop":
			if err := s.sendCommand(target, wire.CmdStop, nil); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			}
		default:
			fmt.Println("unknown command")
		}
	}
}
