// internal/driver/modbus/connection.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/tag-poller/internal/future"
	"github.com/tamzrod/tag-poller/internal/plc"
)

// Scheme is the connection string scheme served by this driver.
const Scheme = "modbus-tcp"

const (
	defaultPort    = 502
	defaultUnitID  = 1
	defaultTimeout = time.Second
)

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// reader is the subset of modbus.Client the driver reads with.
type reader interface {
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

type session struct {
	reader reader
	closer io.Closer
}

type dialFunc func(cfg Config) (*session, error)

func dialTCP(cfg Config) (*session, error) {
	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, err
	}
	return &session{reader: modbus.NewClient(h), closer: h}, nil
}

// ExceptionError is a Modbus exception response for one tag.
type ExceptionError struct {
	Tag string
	Err *modbus.ModbusError
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus: tag %s: %v", e.Tag, e.Err)
}

func (e *ExceptionError) Unwrap() error { return e.Err }

// Code returns the Modbus exception code.
func (e *ExceptionError) Code() uint16 { return uint16(e.Err.ExceptionCode) }

// Connection is one Modbus TCP link.
// Reads are serialized; the link is dropped on transport errors and
// comes back only through Reconnect.
type Connection struct {
	cfg    Config
	dial   dialFunc
	logger *slog.Logger

	mu     sync.Mutex
	sess   *session
	closed bool
}

func newConnection(cfg Config, dial dialFunc, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		cfg:    cfg,
		dial:   dial,
		logger: logger.With("driver", Scheme, "endpoint", cfg.Endpoint),
	}
}

func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil
}

// Reconnect drops any current link and dials again.
func (c *Connection) Reconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return plc.ErrClosed
	}
	_ = c.dropLocked()

	sess, err := c.dial(c.cfg)
	if err != nil {
		return fmt.Errorf("modbus: dial %s: %w", c.cfg.Endpoint, err)
	}
	c.sess = sess
	c.logger.Info("connected", "unit_id", c.cfg.UnitID)
	return nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return c.dropLocked()
}

func (c *Connection) dropLocked() error {
	if c.sess == nil {
		return nil
	}
	err := c.sess.closer.Close()
	c.sess = nil
	return err
}

func (c *Connection) ReadRequestBuilder() plc.ReadRequestBuilder {
	return &requestBuilder{conn: c}
}

type requestBuilder struct {
	conn  *Connection
	items plc.ItemSet[Address]
}

func (b *requestBuilder) AddItem(name, address string) error {
	return b.items.Add(name, address, ParseAddress)
}

func (b *requestBuilder) Build() plc.ReadRequest {
	return &readRequest{conn: b.conn, items: b.items.Items()}
}

type readRequest struct {
	conn  *Connection
	items []plc.Item[Address]
}

func (r *readRequest) TagNames() []string {
	out := make([]string, len(r.items))
	for i, it := range r.items {
		out[i] = it.Name
	}
	return out
}

// Execute performs the read on its own goroutine.
func (r *readRequest) Execute() *future.Future[plc.ReadResponse] {
	f := future.New[plc.ReadResponse]()
	go func() {
		resp, err := r.conn.read(r.items)
		if err != nil {
			f.Fail(err)
			return
		}
		f.Complete(resp)
	}()
	return f
}

// read runs every item in order. Modbus exceptions only drop their own
// tag; a transport error aborts the read and drops the link.
func (c *Connection) read(items []plc.Item[Address]) (plc.ReadResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil, plc.ErrNotConnected
	}

	values := make(map[string]any, len(items))
	var firstExc error

	for _, it := range items {
		v, err := readItem(c.sess.reader, it.Address)
		if err == nil {
			values[it.Name] = v
			continue
		}

		var mbErr *modbus.ModbusError
		if errors.As(err, &mbErr) {
			exc := &ExceptionError{Tag: it.Name, Err: mbErr}
			c.logger.Debug("tag read rejected by device", "tag", it.Name, "err", exc)
			if firstExc == nil {
				firstExc = exc
			}
			continue
		}

		c.logger.Warn("transport error, dropping link", "tag", it.Name, "err", err)
		_ = c.dropLocked()
		return nil, fmt.Errorf("modbus: read %s: %w", it.Name, err)
	}

	if len(values) == 0 && firstExc != nil {
		return nil, firstExc
	}
	return plc.NewReadResponse(values), nil
}

func readItem(r reader, a Address) (any, error) {
	var (
		raw []byte
		err error
	)
	switch a.Area {
	case AreaCoil:
		raw, err = r.ReadCoils(a.Start, a.Quantity)
	case AreaDiscreteInput:
		raw, err = r.ReadDiscreteInputs(a.Start, a.Quantity)
	case AreaHoldingRegister:
		raw, err = r.ReadHoldingRegisters(a.Start, a.Quantity)
	case AreaInputRegister:
		raw, err = r.ReadInputRegisters(a.Start, a.Quantity)
	default:
		return nil, fmt.Errorf("modbus: unsupported area %d", a.Area)
	}
	if err != nil {
		return nil, err
	}

	if a.Area.isBits() {
		if len(raw)*8 < int(a.Quantity) {
			return nil, errors.New("modbus: read-bits payload shorter than quantity")
		}
		bits := unpackBits(raw, int(a.Quantity))
		if !a.Array {
			return bits[0], nil
		}
		return bits, nil
	}

	if len(raw) != 2*int(a.Quantity) {
		return nil, fmt.Errorf("modbus: read-registers payload %d bytes, want %d", len(raw), 2*int(a.Quantity))
	}
	regs := unpackRegisters(raw)
	if !a.Array {
		return regs[0], nil
	}
	return regs, nil
}

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = data[i/8]&(1<<(i%8)) != 0
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

// Driver opens Modbus TCP connections from
// modbus-tcp://host[:port]?unit-id=N&timeout-ms=N.
type Driver struct {
	logger *slog.Logger
	dial   dialFunc
}

func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{logger: logger, dial: dialTCP}
}

func (d *Driver) Scheme() string { return Scheme }

// Connect dials once; failure here fails fast.
func (d *Driver) Connect(ctx context.Context, u plc.ConnectionURL) (plc.Connection, error) {
	host, port, err := u.HostPort(defaultPort)
	if err != nil {
		return nil, err
	}
	unitID, err := u.IntOption("unit-id", defaultUnitID)
	if err != nil {
		return nil, err
	}
	if unitID < 0 || unitID > 255 {
		return nil, fmt.Errorf("modbus: unit-id %d out of range", unitID)
	}
	timeout, err := u.DurationMsOption("timeout-ms", defaultTimeout)
	if err != nil {
		return nil, err
	}

	conn := newConnection(Config{
		Endpoint: host + ":" + strconv.Itoa(port),
		UnitID:   uint8(unitID),
		Timeout:  timeout,
	}, d.dial, d.logger)

	if err := conn.Reconnect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}
