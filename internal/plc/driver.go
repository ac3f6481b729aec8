// internal/plc/driver.go
package plc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConnectionURL is a parsed connection string: scheme://host[:port][?opts].
type ConnectionURL struct {
	Scheme  string
	Host    string
	Options url.Values
}

// ParseConnectionString parses s into a ConnectionURL.
func ParseConnectionString(s string) (ConnectionURL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return ConnectionURL{}, fmt.Errorf("plc: connection string %q: %w", s, err)
	}
	if u.Scheme == "" {
		return ConnectionURL{}, fmt.Errorf("plc: connection string %q: missing scheme", s)
	}
	if u.Host == "" {
		return ConnectionURL{}, fmt.Errorf("plc: connection string %q: missing host", s)
	}
	return ConnectionURL{
		Scheme:  strings.ToLower(u.Scheme),
		Host:    u.Host,
		Options: u.Query(),
	}, nil
}

func (u ConnectionURL) String() string {
	s := u.Scheme + "://" + u.Host
	if len(u.Options) > 0 {
		s += "?" + u.Options.Encode()
	}
	return s
}

// Endpoint is scheme://host without options, safe to log.
func (u ConnectionURL) Endpoint() string {
	return u.Scheme + "://" + u.Host
}

// HostPort splits Host and applies defPort when no port is given.
func (u ConnectionURL) HostPort(defPort int) (string, int, error) {
	host, portStr, found := strings.Cut(u.Host, ":")
	if !found || portStr == "" {
		return host, defPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("plc: invalid port %q", portStr)
	}
	return host, port, nil
}

// Option returns the named option or def.
func (u ConnectionURL) Option(key, def string) string {
	if v := u.Options.Get(key); v != "" {
		return v
	}
	return def
}

// IntOption returns the named option as an int, or def when absent.
func (u ConnectionURL) IntOption(key string, def int) (int, error) {
	v := u.Options.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("plc: option %s=%q: not an integer", key, v)
	}
	return n, nil
}

// DurationMsOption reads a millisecond option as a duration.
func (u ConnectionURL) DurationMsOption(key string, def time.Duration) (time.Duration, error) {
	n, err := u.IntOption(key, -1)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return def, nil
	}
	return time.Duration(n) * time.Millisecond, nil
}

// Driver opens connections for one scheme.
type Driver interface {
	Scheme() string
	Connect(ctx context.Context, u ConnectionURL) (Connection, error)
}

// DriverManager resolves connection strings to drivers.
type DriverManager struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

func NewDriverManager(drivers ...Driver) *DriverManager {
	m := &DriverManager{drivers: make(map[string]Driver)}
	for _, d := range drivers {
		m.drivers[strings.ToLower(d.Scheme())] = d
	}
	return m
}

// Register adds a driver. Duplicate schemes are rejected.
func (m *DriverManager) Register(d Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scheme := strings.ToLower(d.Scheme())
	if _, exists := m.drivers[scheme]; exists {
		return fmt.Errorf("plc: driver for scheme %q already registered", scheme)
	}
	m.drivers[scheme] = d
	return nil
}

// GetConnection parses connString and connects with the matching driver.
func (m *DriverManager) GetConnection(ctx context.Context, connString string) (Connection, error) {
	u, err := ParseConnectionString(connString)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	d, ok := m.drivers[u.Scheme]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plc: no driver for scheme %q", u.Scheme)
	}

	conn, err := d.Connect(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("plc: connect %s: %w", u.Endpoint(), err)
	}
	return conn, nil
}
