// internal/driver/simulated/connection.go
package simulated

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/tag-poller/internal/future"
	"github.com/tamzrod/tag-poller/internal/plc"
)

// Scheme is the connection string scheme served by this driver.
const Scheme = "simulated"

// ErrSimulatedFailure is returned by every read when fail=1 is set.
var ErrSimulatedFailure = errors.New("simulated: read failed")

type Kind uint8

const (
	KindRandom Kind = iota
	KindState
)

type ValueType string

const (
	TypeBool   ValueType = "BOOL"
	TypeInt    ValueType = "INT"
	TypeReal   ValueType = "REAL"
	TypeString ValueType = "STRING"
)

// Address is "<RANDOM|STATE>/<name>:<TYPE>".
type Address struct {
	Kind Kind
	Name string
	Type ValueType
}

func ParseAddress(s string) (Address, error) {
	kindStr, rest, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Address{}, fmt.Errorf("simulated: address %q: want <RANDOM|STATE>/<name>:<TYPE>", s)
	}

	var a Address
	switch strings.ToUpper(kindStr) {
	case "RANDOM":
		a.Kind = KindRandom
	case "STATE":
		a.Kind = KindState
	default:
		return Address{}, fmt.Errorf("simulated: address %q: unknown kind %q", s, kindStr)
	}

	name, typ, ok := strings.Cut(rest, ":")
	if !ok || name == "" {
		return Address{}, fmt.Errorf("simulated: address %q: missing name or type", s)
	}
	a.Name = name
	a.Type = ValueType(strings.ToUpper(typ))

	switch a.Type {
	case TypeBool, TypeInt, TypeReal, TypeString:
	default:
		return Address{}, fmt.Errorf("simulated: address %q: unknown type %q", s, typ)
	}
	return a, nil
}

// Config controls simulated timing and failures.
type Config struct {
	Device  string
	Latency time.Duration
	Fail    bool
}

// Connection is an in-memory device. STATE values persist across reads.
type Connection struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	connected bool
	closed    bool
	state     map[string]any
}

func NewConnection(cfg Config, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		cfg:       cfg,
		logger:    logger.With("driver", Scheme, "device", cfg.Device),
		connected: true,
		state:     make(map[string]any),
	}
}

func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
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
	c.connected = true
	return nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.connected = false
	return nil
}

// SetState stores a value for STATE/<name> tags.
func (c *Connection) SetState(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[name] = v
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

// Execute resolves inline when there is no latency, so an immediate
// receive sees the result. Otherwise it completes after the delay.
func (r *readRequest) Execute() *future.Future[plc.ReadResponse] {
	f := future.New[plc.ReadResponse]()
	run := func() {
		resp, err := r.conn.read(r.items)
		if err != nil {
			f.Fail(err)
			return
		}
		f.Complete(resp)
	}

	d := r.conn.cfg.Latency
	if d <= 0 {
		run()
		return f
	}
	go func() {
		time.Sleep(d)
		run()
	}()
	return f
}

func (c *Connection) read(items []plc.Item[Address]) (plc.ReadResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, plc.ErrNotConnected
	}
	if c.cfg.Fail {
		return nil, ErrSimulatedFailure
	}

	values := make(map[string]any, len(items))
	for _, it := range items {
		switch it.Address.Kind {
		case KindRandom:
			values[it.Name] = randomValue(it.Address.Type)
		case KindState:
			v, ok := c.state[it.Address.Name]
			if !ok {
				v = zeroValue(it.Address.Type)
			}
			values[it.Name] = v
		}
	}
	return plc.NewReadResponse(values), nil
}

func randomValue(t ValueType) any {
	switch t {
	case TypeBool:
		return rand.Intn(2) == 1
	case TypeInt:
		return rand.Int63n(1 << 16)
	case TypeReal:
		return rand.Float64() * 100
	default:
		return strconv.FormatUint(rand.Uint64(), 36)
	}
}

func zeroValue(t ValueType) any {
	switch t {
	case TypeBool:
		return false
	case TypeInt:
		return int64(0)
	case TypeReal:
		return float64(0)
	default:
		return ""
	}
}

// Driver opens simulated devices from simulated://name?latency-ms=N&fail=1.
type Driver struct {
	logger *slog.Logger
}

func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{logger: logger}
}

func (d *Driver) Scheme() string { return Scheme }

func (d *Driver) Connect(ctx context.Context, u plc.ConnectionURL) (plc.Connection, error) {
	latency, err := u.DurationMsOption("latency-ms", 0)
	if err != nil {
		return nil, err
	}
	return NewConnection(Config{
		Device:  u.Host,
		Latency: latency,
		Fail:    u.Option("fail", "0") == "1",
	}, d.logger), nil
}
