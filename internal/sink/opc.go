package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"

	"github.com/smazurov/ledsim/internal/metrics"
	"github.com/smazurov/ledsim/internal/strip"
)

const (
	opcSetPixels      = 0
	opcMaxPixels      = (1<<16 - 1) / 3
	defaultOPCTimeout = time.Second
	defaultOPCRetry   = 2 * time.Second
)

// ErrOPCBackoff is returned while the sink waits before redialing.
var ErrOPCBackoff = errors.New("opc server unreachable, waiting to reconnect")

// OPCChannel converts a configured channel number, rejecting values outside
// the protocol's 0..255 range.
func OPCChannel(n int) (uint8, error) {
	if n < 0 || n > math.MaxUint8 {
		return 0, fmt.Errorf("opc channel must be between 0 and 255, got %d", n)
	}
	return uint8(n), nil
}

// OPC sends "set pixel colors" messages to an Open Pixel Control server such
// as fcserver for Fadecandy boards. The connection is opened on the first
// frame and reopened after a failure, at most once per retry interval.
type OPC struct {
	addr    string
	channel uint8
	timeout time.Duration
	retry   time.Duration
	logger  *slog.Logger
	dial    func(network, addr string, timeout time.Duration) (net.Conn, error)

	mu         sync.Mutex
	conn       net.Conn
	lastDial   time.Time
	buf        []byte
	everFailed bool
}

// OPCOption configures an OPC sink.
type OPCOption func(*OPC)

// WithOPCTimeout bounds dialing and each write.
func WithOPCTimeout(d time.Duration) OPCOption {
	return func(o *OPC) { o.timeout = d }
}

// WithOPCRetry sets the minimum gap between dial attempts.
func WithOPCRetry(d time.Duration) OPCOption {
	return func(o *OPC) { o.retry = d }
}

// NewOPC returns a sink for the server at addr ("host:port") addressing
// channel; channel 0 broadcasts to every output.
func NewOPC(addr string, channel uint8, logger *slog.Logger, opts ...OPCOption) *OPC {
	o := &OPC{
		addr:    addr,
		channel: channel,
		timeout: defaultOPCTimeout,
		retry:   defaultOPCRetry,
		logger:  logger,
		dial:    net.DialTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OPC) Name() string { return "opc" }

// SetLEDs implements Sink.
func (o *OPC) SetLEDs(colors []strip.Color) error {
	if len(colors) > opcMaxPixels {
		return fmt.Errorf("opc: %d pixels exceed the %d a message can carry", len(colors), opcMaxPixels)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureConn(); err != nil {
		return err
	}

	o.buf = appendOPCMessage(o.buf[:0], o.channel, colors)
	if err := o.conn.SetWriteDeadline(time.Now().Add(o.timeout)); err != nil {
		o.drop(err)
		return fmt.Errorf("opc: %w", err)
	}
	if _, err := o.conn.Write(o.buf); err != nil {
		o.drop(err)
		return fmt.Errorf("opc: write: %w", err)
	}
	return nil
}

// Close closes the connection if one is open.
func (o *OPC) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return nil
	}
	err := o.conn.Close()
	o.conn = nil
	return err
}

// ensureConn dials when disconnected and the retry interval has passed.
// Callers hold o.mu.
func (o *OPC) ensureConn() error {
	if o.conn != nil {
		return nil
	}
	if !o.lastDial.IsZero() && time.Since(o.lastDial) < o.retry {
		return ErrOPCBackoff
	}

	o.lastDial = time.Now()
	conn, err := o.dial("tcp", o.addr, o.timeout)
	metrics.IncOPCConnect(err == nil)
	if err != nil {
		if !o.everFailed {
			o.logger.Warn("OPC server unreachable", "addr", o.addr, "error", err)
			o.everFailed = true
		}
		return fmt.Errorf("opc: dial %s: %w", o.addr, err)
	}

	o.conn = conn
	o.everFailed = false
	o.logger.Info("Connected to OPC server", "addr", o.addr, "channel", o.channel)
	return nil
}

// drop discards a broken connection. Callers hold o.mu.
func (o *OPC) drop(cause error) {
	o.logger.Warn("OPC connection lost", "addr", o.addr, "error", cause)
	o.conn.Close()
	o.conn = nil
}

// appendOPCMessage encodes a set-pixel-colors message: channel, command,
// big-endian data length, then R G B per pixel.
func appendOPCMessage(dst []byte, channel uint8, colors []strip.Color) []byte {
	dst = append(dst, channel, opcSetPixels)
	dst = binary.BigEndian.AppendUint16(dst, uint16(3*len(colors)))
	for _, c := range colors {
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}
