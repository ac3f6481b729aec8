// internal/driver/snmp/connection.go
package snmp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/tamzrod/tag-poller/internal/future"
	"github.com/tamzrod/tag-poller/internal/plc"
)

// Scheme is the connection string scheme served by this driver.
const Scheme = "snmp"

const (
	defaultPort    = 161
	defaultTimeout = 2 * time.Second
	defaultRetries = 1
)

// Config is the agent and session settings for one device.
type Config struct {
	Target    string
	Port      uint16
	Community string
	Version   gosnmp.SnmpVersion
	Timeout   time.Duration
	Retries   int
}

type getter interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
}

type session struct {
	getter getter
	closer io.Closer
}

type dialFunc func(cfg Config) (*session, error)

func dialUDP(cfg Config) (*session, error) {
	g := &gosnmp.GoSNMP{
		Target:    cfg.Target,
		Port:      cfg.Port,
		Community: cfg.Community,
		Version:   cfg.Version,
		Timeout:   cfg.Timeout,
		Retries:   cfg.Retries,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := g.Connect(); err != nil {
		return nil, err
	}
	return &session{getter: g, closer: g.Conn}, nil
}

// StatusError is a non-zero error-status in an SNMP response PDU.
type StatusError struct {
	Status gosnmp.SNMPError
	Index  uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("snmp: agent error-status %s at index %d", e.Status, e.Index)
}

func (e *StatusError) Code() uint16 { return uint16(e.Status) }

// Connection is one SNMP agent session. Requests are serialized.
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
		logger: logger.With("driver", Scheme, "target", cfg.Target),
	}
}

func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil
}

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
		return fmt.Errorf("snmp: connect %s:%d: %w", c.cfg.Target, c.cfg.Port, err)
	}
	c.sess = sess
	c.logger.Info("connected", "version", c.cfg.Version.String())
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
	var err error
	if c.sess.closer != nil {
		err = c.sess.closer.Close()
	}
	c.sess = nil
	return err
}

func (c *Connection) ReadRequestBuilder() plc.ReadRequestBuilder {
	return &requestBuilder{conn: c}
}

type requestBuilder struct {
	conn  *Connection
	items plc.ItemSet[string]
}

func (b *requestBuilder) AddItem(name, address string) error {
	return b.items.Add(name, address, ParseOID)
}

func (b *requestBuilder) Build() plc.ReadRequest {
	return &readRequest{conn: b.conn, items: b.items.Items()}
}

type readRequest struct {
	conn  *Connection
	items []plc.Item[string]
}

func (r *readRequest) TagNames() []string {
	out := make([]string, len(r.items))
	for i, it := range r.items {
		out[i] = it.Name
	}
	return out
}

func (r *readRequest) Execute() *future.Future[plc.ReadResponse] {
	f := future.New[plc.ReadResponse]()
	go func() {
		resp, err := r.conn.get(r.items)
		if err != nil {
			f.Fail(err)
			return
		}
		f.Complete(resp)
	}()
	return f
}

// get issues GETs in batches of at most gosnmp.MaxOids.
// Variables the agent reports as missing are left out of the response.
func (c *Connection) get(items []plc.Item[string]) (plc.ReadResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil, plc.ErrNotConnected
	}

	byOID := make(map[string][]string, len(items))
	oids := make([]string, 0, len(items))
	for _, it := range items {
		if _, seen := byOID[it.Address]; !seen {
			oids = append(oids, it.Address)
		}
		byOID[it.Address] = append(byOID[it.Address], it.Name)
	}

	values := make(map[string]any, len(items))

	for start := 0; start < len(oids); start += gosnmp.MaxOids {
		end := start + gosnmp.MaxOids
		if end > len(oids) {
			end = len(oids)
		}

		pkt, err := c.sess.getter.Get(oids[start:end])
		if err != nil {
			c.logger.Warn("get failed, dropping session", "err", err)
			_ = c.dropLocked()
			return nil, fmt.Errorf("snmp: get: %w", err)
		}
		if pkt.Error != gosnmp.NoError {
			return nil, &StatusError{Status: pkt.Error, Index: pkt.ErrorIndex}
		}

		for _, v := range pkt.Variables {
			val, ok := convertValue(v)
			if !ok {
				c.logger.Debug("oid not available", "oid", v.Name, "type", v.Type.String())
				continue
			}
			for _, name := range byOID[normalizeOID(v.Name)] {
				values[name] = val
			}
		}
	}

	return plc.NewReadResponse(values), nil
}

func normalizeOID(oid string) string {
	if len(oid) > 0 && oid[0] != '.' {
		return "." + oid
	}
	return oid
}

// convertValue maps a PDU to a plain Go value.
// Octet strings become strings; exception types report false.
func convertValue(v gosnmp.SnmpPDU) (any, bool) {
	switch v.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return nil, false
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			return string(b), true
		}
		return v.Value, true
	default:
		return v.Value, true
	}
}

// Driver opens SNMP sessions from
// snmp://host[:port]?community=public&version=2c&timeout-ms=N&retries=N.
type Driver struct {
	logger *slog.Logger
	dial   dialFunc
}

func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{logger: logger, dial: dialUDP}
}

func (d *Driver) Scheme() string { return Scheme }

func (d *Driver) Connect(ctx context.Context, u plc.ConnectionURL) (plc.Connection, error) {
	host, port, err := u.HostPort(defaultPort)
	if err != nil {
		return nil, err
	}

	var version gosnmp.SnmpVersion
	switch v := u.Option("version", "2c"); v {
	case "1":
		version = gosnmp.Version1
	case "2c":
		version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("snmp: unsupported version %q", v)
	}

	timeout, err := u.DurationMsOption("timeout-ms", defaultTimeout)
	if err != nil {
		return nil, err
	}
	retries, err := u.IntOption("retries", defaultRetries)
	if err != nil {
		return nil, err
	}

	conn := newConnection(Config{
		Target:    host,
		Port:      uint16(port),
		Community: u.Option("community", "public"),
		Version:   version,
		Timeout:   timeout,
		Retries:   retries,
	}, d.dial, d.logger)

	if err := conn.Reconnect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}
