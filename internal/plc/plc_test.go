// internal/plc/plc_test.go
package plc

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	u, err := ParseConnectionString("Modbus-TCP://10.0.0.5:1502?unit-id=3&timeout-ms=250")
	require.NoError(t, err)

	assert.Equal(t, "modbus-tcp", u.Scheme)
	assert.Equal(t, "10.0.0.5:1502", u.Host)
	assert.Equal(t, "modbus-tcp://10.0.0.5:1502", u.Endpoint())

	host, port, err := u.HostPort(502)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", host)
	assert.Equal(t, 1502, port)

	unit, err := u.IntOption("unit-id", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, unit)

	d, err := u.DurationMsOption("timeout-ms", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = u.DurationMsOption("missing", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestParseConnectionString_Invalid(t *testing.T) {
	for _, s := range []string{"", "10.0.0.5:502", "snmp://"} {
		_, err := ParseConnectionString(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestConnectionURL_DefaultPort(t *testing.T) {
	u, err := ParseConnectionString("snmp://switch-1")
	require.NoError(t, err)

	host, port, err := u.HostPort(161)
	require.NoError(t, err)
	assert.Equal(t, "switch-1", host)
	assert.Equal(t, 161, port)
}

type stubDriver struct {
	scheme string
	err    error
	got    ConnectionURL
}

func (d *stubDriver) Scheme() string { return d.scheme }

func (d *stubDriver) Connect(ctx context.Context, u ConnectionURL) (Connection, error) {
	d.got = u
	return nil, d.err
}

func TestDriverManager(t *testing.T) {
	d := &stubDriver{scheme: "fake"}
	m := NewDriverManager(d)

	_, err := m.GetConnection(context.Background(), "fake://dev?x=1")
	require.NoError(t, err)
	assert.Equal(t, "dev", d.got.Host)
	assert.Equal(t, "1", d.got.Option("x", ""))

	_, err = m.GetConnection(context.Background(), "other://dev")
	assert.Error(t, err)

	assert.Error(t, m.Register(&stubDriver{scheme: "FAKE"}))
}

func TestDriverManager_WrapsConnectError(t *testing.T) {
	boom := errors.New("refused")
	m := NewDriverManager(&stubDriver{scheme: "fake", err: boom})

	_, err := m.GetConnection(context.Background(), "fake://dev")
	assert.ErrorIs(t, err, boom)
}

func TestItemSet_ReplacesDuplicateNames(t *testing.T) {
	var s ItemSet[int]
	parse := func(a string) (int, error) {
		if a == "bad" {
			return 0, errors.New("bad address")
		}
		return len(a), nil
	}

	require.NoError(t, s.Add("a", "x", parse))
	require.NoError(t, s.Add("b", "yy", parse))
	require.NoError(t, s.Add("a", "zzz", parse))
	assert.Error(t, s.Add("c", "bad", parse))

	assert.Equal(t, []string{"a", "b"}, s.Names())
	assert.Equal(t, 3, s.Items()[0].Address)
}

func TestNewReadResponse_CopiesInput(t *testing.T) {
	in := map[string]any{"a": 1, "b": "two"}
	r := NewReadResponse(in)
	in["c"] = 3

	names := r.FieldNames()
	sort.Strings(names)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, "two", r.Value("b"))
	assert.Nil(t, r.Value("c"))
}
