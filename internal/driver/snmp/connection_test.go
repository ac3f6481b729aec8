// internal/driver/snmp/connection_test.go
package snmp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/tag-poller/internal/plc"
)

type fakeAgent struct {
	vars    map[string]gosnmp.SnmpPDU
	status  gosnmp.SNMPError
	err     error
	batches [][]string
}

func (a *fakeAgent) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	a.batches = append(a.batches, append([]string(nil), oids...))
	if a.err != nil {
		return nil, a.err
	}
	pkt := &gosnmp.SnmpPacket{Error: a.status}
	for _, oid := range oids {
		v, ok := a.vars[oid]
		if !ok {
			v = gosnmp.SnmpPDU{Name: oid, Type: gosnmp.NoSuchObject}
		}
		pkt.Variables = append(pkt.Variables, v)
	}
	return pkt, nil
}

func connectFake(t *testing.T, a *fakeAgent) *Connection {
	t.Helper()
	dial := func(Config) (*session, error) { return &session{getter: a}, nil }
	c := newConnection(Config{Target: "switch-1", Port: 161}, dial, nil)
	require.NoError(t, c.Reconnect(context.Background()))
	return c
}

func execute(t *testing.T, c *Connection, tags map[string]string) (plc.ReadResponse, error) {
	t.Helper()
	b := c.ReadRequestBuilder()
	for name, oid := range tags {
		require.NoError(t, b.AddItem(name, oid))
	}
	f := b.Build().Execute()
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("get did not resolve")
	}
	return f.Result()
}

func TestParseOID(t *testing.T) {
	oid, err := ParseOID("1.3.6.1.2.1.1.3.0")
	require.NoError(t, err)
	assert.Equal(t, ".1.3.6.1.2.1.1.3.0", oid)

	oid, err = ParseOID(" .1.3.6.1.2.1.1.5.0 ")
	require.NoError(t, err)
	assert.Equal(t, ".1.3.6.1.2.1.1.5.0", oid)

	for _, bad := range []string{"", "1", "1.3.x", "sysUpTime.0", "1..3"} {
		_, err := ParseOID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestGet_ConvertsAndOmitsMissing(t *testing.T) {
	a := &fakeAgent{vars: map[string]gosnmp.SnmpPDU{
		".1.3.6.1.2.1.1.5.0": {Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("core-sw")},
		".1.3.6.1.2.1.1.3.0": {Name: ".1.3.6.1.2.1.1.3.0", Type: gosnmp.TimeTicks, Value: uint32(4200)},
	}}
	c := connectFake(t, a)

	resp, err := execute(t, c, map[string]string{
		"name":    "1.3.6.1.2.1.1.5.0",
		"uptime":  ".1.3.6.1.2.1.1.3.0",
		"alias":   "1.3.6.1.2.1.1.3.0",
		"missing": "1.3.6.1.2.1.99.0",
	})
	require.NoError(t, err)

	names := resp.FieldNames()
	sort.Strings(names)
	assert.Equal(t, []string{"alias", "name", "uptime"}, names)
	assert.Equal(t, "core-sw", resp.Value("name"))
	assert.Equal(t, uint32(4200), resp.Value("uptime"))
	assert.Equal(t, uint32(4200), resp.Value("alias"))

	require.Len(t, a.batches, 1)
	assert.Len(t, a.batches[0], 3)
}

func TestGet_BatchesLargeRequests(t *testing.T) {
	a := &fakeAgent{vars: map[string]gosnmp.SnmpPDU{}}
	c := connectFake(t, a)

	tags := map[string]string{}
	for i := 0; i < gosnmp.MaxOids+5; i++ {
		oid := fmt.Sprintf(".1.3.6.1.4.1.9999.%d", i)
		a.vars[oid] = gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Integer, Value: i}
		tags[fmt.Sprintf("t%d", i)] = oid
	}

	resp, err := execute(t, c, tags)
	require.NoError(t, err)
	assert.Len(t, resp.FieldNames(), gosnmp.MaxOids+5)
	require.Len(t, a.batches, 2)
	assert.Len(t, a.batches[1], 5)
}

func TestGet_ErrorStatus(t *testing.T) {
	a := &fakeAgent{status: gosnmp.GenErr}
	c := connectFake(t, a)

	_, err := execute(t, c, map[string]string{"x": "1.3.6.1.2.1.1.1.0"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, uint16(gosnmp.GenErr), se.Code())
	assert.True(t, c.IsConnected())
}

func TestGet_TransportErrorDropsSession(t *testing.T) {
	a := &fakeAgent{err: errors.New("request timeout (after 1 retries)")}
	c := connectFake(t, a)

	_, err := execute(t, c, map[string]string{"x": "1.3.6.1.2.1.1.1.0"})
	require.Error(t, err)
	assert.False(t, c.IsConnected())

	_, err = execute(t, c, map[string]string{"x": "1.3.6.1.2.1.1.1.0"})
	assert.ErrorIs(t, err, plc.ErrNotConnected)
}

func TestDriver_Connect(t *testing.T) {
	var got Config
	d := NewDriver(nil)
	d.dial = func(cfg Config) (*session, error) {
		got = cfg
		return &session{getter: &fakeAgent{}}, nil
	}

	u, err := plc.ParseConnectionString("snmp://10.1.1.1?community=private&version=1&retries=3")
	require.NoError(t, err)

	conn, err := d.Connect(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, conn.IsConnected())

	assert.Equal(t, Config{
		Target:    "10.1.1.1",
		Port:      161,
		Community: "private",
		Version:   gosnmp.Version1,
		Timeout:   defaultTimeout,
		Retries:   3,
	}, got)

	u, err = plc.ParseConnectionString("snmp://10.1.1.1?version=3")
	require.NoError(t, err)
	_, err = d.Connect(context.Background(), u)
	assert.Error(t, err)
}
