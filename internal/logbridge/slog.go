// Package logbridge bridges log/slog output to two destinations at once:
// human-readable text on the secure console, and (for entries judged
// interesting — info level and above) a compact LogEvent notification the
// gateway can see over the air.
//
// Grounded on telemetry/slog.go's SlogHandler: the same "write to console,
// then mirror info-and-above records to a second sink" dual-write
// structure, and the same fixed-size, heap-free message-building helpers
// (buildMessage/copyToBuffer/copyAttrValue), retargeted from an OTLP queue
// to the wire protocol's own LogEvent frame.
package logbridge

import (
	"context"
	"io"
	"log/slog"

	"github.com/openswarm-eu/swarmit/internal/wire"
)

// Emitter sends an encoded notification frame device-to-host.
type Emitter interface {
	Emit(body []byte)
}

// Clock supplies the timestamp stamped into a LogEvent notification,
// injectable so tests don't depend on wall-clock time.
type Clock interface {
	Now() uint32
}

// maxMessageLen bounds the compact message built for a LogEvent body, one
// pre-allocated buffer reused across every Handle call.
const maxMessageLen = 200

// Handler is a slog.Handler that writes text to the console and mirrors
// info-and-above records as LogEvent notifications.
type Handler struct {
	textHandler slog.Handler
	deviceID    uint64
	emitter     Emitter
	clock       Clock
	group       string
}

// NewHandler returns a Handler writing console text to w and mirroring
// info-and-above records, stamped with deviceID, through emitter.
func NewHandler(w io.Writer, deviceID uint64, emitter Emitter, clock Clock, opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &Handler{
		textHandler: slog.NewTextHandler(w, opts),
		deviceID:    deviceID,
		emitter:     emitter,
		clock:       clock,
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.textHandler.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	err := h.textHandler.Handle(ctx, r)

	if r.Level >= slog.LevelInfo && h.emitter != nil {
		msg := buildMessage(h.group, r)
		var ts uint32
		if h.clock != nil {
			ts = h.clock.Now()
		}
		body := wire.LogEventNotification{
			DeviceID:  h.deviceID,
			Timestamp: ts,
			Log:       []byte(msg),
		}.Encode(nil)
		h.emitter.Emit(body)
	}

	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		textHandler: h.textHandler.WithAttrs(attrs),
		deviceID:    h.deviceID,
		emitter:     h.emitter,
		clock:       h.clock,
		group:       h.group,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}
	return &Handler{
		textHandler: h.textHandler.WithGroup(name),
		deviceID:    h.deviceID,
		emitter:     h.emitter,
		clock:       h.clock,
		group:       newGroup,
	}
}

// buildMessage builds a compact message string for the LogEvent body:
// "group:msg key=val key2=val2", truncated to maxMessageLen and to at
// most four attributes.
func buildMessage(group string, r slog.Record) string {
	var buf [maxMessageLen]byte
	pos := 0

	if group != "" {
		pos = copyToBuffer(buf[:], pos, group)
		if pos < len(buf) {
			buf[pos] = ':'
			pos++
		}
	}

	pos = copyToBuffer(buf[:], pos, r.Message)

	attrCount := 0
	r.Attrs(func(a slog.Attr) bool {
		if attrCount >= 4 || pos >= len(buf)-10 {
			return false
		}
		if pos < len(buf) {
			buf[pos] = ' '
			pos++
		}
		pos = copyToBuffer(buf[:], pos, a.Key)
		if pos < len(buf) {
			buf[pos] = '='
			pos++
		}
		pos = copyAttrValue(buf[:], pos, a.Value)
		attrCount++
		return true
	})

	return string(buf[:pos])
}

func copyToBuffer(buf []byte, pos int, s string) int {
	for i := 0; i < len(s) && pos < len(buf); i++ {
		buf[pos] = s[i]
		pos++
	}
	return pos
}

func copyAttrValue(buf []byte, pos int, v slog.Value) int {
	switch v.Kind() {
	case slog.KindString:
		return copyToBuffer(buf, pos, v.String())
	case slog.KindInt64:
		return copyToBuffer(buf, pos, itoa(v.Int64()))
	case slog.KindUint64:
		return copyToBuffer(buf, pos, utoa(v.Uint64()))
	case slog.KindBool:
		if v.Bool() {
			return copyToBuffer(buf, pos, "true")
		}
		return copyToBuffer(buf, pos, "false")
	case slog.KindDuration:
		return copyToBuffer(buf, pos, v.Duration().String())
	case slog.KindFloat64:
		return copyToBuffer(buf, pos, itoa(int64(v.Float64())))
	default:
		return copyToBuffer(buf, pos, "?")
	}
}

func itoa(n int64) string {
	if n < 0 {
		return "-" + utoa(uint64(-n))
	}
	return utoa(uint64(n))
}

func utoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
