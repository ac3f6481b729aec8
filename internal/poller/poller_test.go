// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/tamzrod/tag-poller/internal/config"
	"github.com/tamzrod/tag-poller/internal/consumer"
	"github.com/tamzrod/tag-poller/internal/driver"
	"github.com/tamzrod/tag-poller/internal/exchange"
	"github.com/tamzrod/tag-poller/internal/status"
)

// fakeReceiver records which entry point was used and reports failures
// through the tracker the way a consumer would.
type fakeReceiver struct {
	handler consumer.ExceptionHandler
	fail    error
	called  string
	bound   int64
}

func (f *fakeReceiver) respond(ctx context.Context) (*exchange.Exchange, error) {
	ex := exchange.NewFactory("fake").CreateExchange()
	if err := ctx.Err(); err != nil {
		f.handler.HandleException(err)
		return ex, err
	}
	if f.fail != nil {
		f.handler.HandleException(f.fail)
		ex.In.SetBody(map[string]any{})
		return ex, nil
	}
	ex.In.SetBody(map[string]any{"a": 1})
	return ex, nil
}

func (f *fakeReceiver) Receive(ctx context.Context) (*exchange.Exchange, error) {
	f.called = "Receive"
	return f.respond(ctx)
}

func (f *fakeReceiver) ReceiveNoWait(ctx context.Context) (*exchange.Exchange, error) {
	f.called = "ReceiveNoWait"
	return f.respond(ctx)
}

func (f *fakeReceiver) ReceiveTimeout(ctx context.Context, timeoutMs int64) (*exchange.Exchange, error) {
	f.called = "ReceiveTimeout"
	f.bound = timeoutMs
	return f.respond(ctx)
}

func newFakePoller(t *testing.T, mode string, fail error) (*Poller, *fakeReceiver) {
	t.Helper()
	tr := status.NewTracker(nil)
	recv := &fakeReceiver{handler: tr, fail: fail}
	p, err := New(Config{
		UnitID:    "u1",
		Interval:  10 * time.Millisecond,
		Mode:      mode,
		TimeoutMs: 250,
	}, recv, tr, nil)
	require.NoError(t, err)
	return p, recv
}

func TestNew_Validation(t *testing.T) {
	tr := status.NewTracker(nil)
	recv := &fakeReceiver{handler: tr}
	ok := Config{UnitID: "u1", Interval: time.Second, Mode: cfg.ModeTimed}

	_, err := New(ok, recv, tr, nil)
	require.NoError(t, err)

	bad := []Config{
		{Interval: time.Second, Mode: cfg.ModeTimed},
		{UnitID: "u1", Mode: cfg.ModeTimed},
		{UnitID: "u1", Interval: time.Second, Mode: "later"},
	}
	for _, c := range bad {
		_, err := New(c, recv, tr, nil)
		assert.Error(t, err)
	}

	_, err = New(ok, nil, tr, nil)
	assert.Error(t, err)
	_, err = New(ok, recv, nil, nil)
	assert.Error(t, err)
}

func TestPollOnce_ModeSelectsEntryPoint(t *testing.T) {
	tests := map[string]string{
		cfg.ModeBlocking:  "Receive",
		cfg.ModeImmediate: "ReceiveNoWait",
		cfg.ModeTimed:     "ReceiveTimeout",
	}
	for mode, want := range tests {
		t.Run(mode, func(t *testing.T) {
			p, recv := newFakePoller(t, mode, nil)
			res := p.PollOnce(context.Background())

			assert.Equal(t, want, recv.called)
			require.NoError(t, res.Err)
			assert.Equal(t, map[string]any{"a": 1}, res.Exchange.BodyMap())
			assert.Equal(t, status.HealthOK, res.Status.Health)
			assert.True(t, res.StatusChanged)
		})
	}

	p, recv := newFakePoller(t, cfg.ModeTimed, nil)
	p.PollOnce(context.Background())
	assert.Equal(t, int64(250), recv.bound)
}

func TestPollOnce_Failure(t *testing.T) {
	boom := errors.New("device offline")
	p, _ := newFakePoller(t, cfg.ModeImmediate, boom)

	res := p.PollOnce(context.Background())

	assert.ErrorIs(t, res.Err, boom)
	assert.False(t, res.Interrupted)
	assert.Empty(t, res.Exchange.BodyMap())
	assert.Equal(t, status.HealthError, res.Status.Health)
	assert.Equal(t, status.CodeGeneric, res.Status.LastErrorCode)
	assert.Equal(t, res.Status, p.Status())

	// failure does not leak into the next cycle
	p.recv.(*fakeReceiver).fail = nil
	res = p.PollOnce(context.Background())
	assert.NoError(t, res.Err)
	assert.Equal(t, status.HealthOK, res.Status.Health)
}

func TestPollOnce_InterruptedLeavesHealth(t *testing.T) {
	p, _ := newFakePoller(t, cfg.ModeBlocking, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.PollOnce(ctx)
	assert.True(t, res.Interrupted)
	assert.ErrorIs(t, res.Err, context.Canceled)
	require.NotNil(t, res.Exchange)
	assert.Equal(t, status.HealthUnknown, res.Status.Health)

	// next cycle starts clean
	res = p.PollOnce(context.Background())
	assert.NoError(t, res.Err)
}

func TestRun_EmitsUntilCancelled(t *testing.T) {
	p, _ := newFakePoller(t, cfg.ModeImmediate, nil)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case res := <-out:
			assert.Equal(t, "u1", res.UnitID)
		case <-time.After(time.Second):
			t.Fatal("no poll result")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

// stallingReceiver fails its first blocking receive, then hangs until ctx is done.
type stallingReceiver struct {
	fakeReceiver
	calls int
}

func (s *stallingReceiver) Receive(ctx context.Context) (*exchange.Exchange, error) {
	s.calls++
	if s.calls == 1 {
		return s.respond(ctx)
	}
	<-ctx.Done()
	return s.respond(ctx)
}

func TestRun_SecondsInErrorAdvanceDuringHungRead(t *testing.T) {
	tr := status.NewTracker(nil)
	recv := &stallingReceiver{fakeReceiver: fakeReceiver{handler: tr, fail: errors.New("no response")}}
	p, err := New(Config{UnitID: "u1", Interval: 5 * time.Millisecond, Mode: cfg.ModeBlocking}, recv, tr, nil)
	require.NoError(t, err)
	p.tickEvery = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult, 1)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	select {
	case res := <-out:
		require.Error(t, res.Err)
		assert.Equal(t, status.HealthError, res.Status.Health)
	case <-time.After(time.Second):
		t.Fatal("no poll result")
	}

	// the second read is hung; the health tick must keep counting
	assert.Eventually(t, func() bool {
		return p.Status().SecondsInError >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestBuild_SimulatedUnit(t *testing.T) {
	u := cfg.UnitConfig{
		ID:         "sim",
		Connection: "simulated://dev",
		Tags: map[string]any{
			"level":  "STATE/level:REAL",
			"legacy": 40001,
		},
		Poll: cfg.PollConfig{IntervalMs: 50, Mode: cfg.ModeTimed, TimeoutMs: 1000},
	}

	p, closeFn, err := Build(context.Background(), u, driver.NewManager(nil), nil)
	require.NoError(t, err)
	defer closeFn()

	res := p.PollOnce(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, map[string]any{"level": float64(0)}, res.Exchange.BodyMap())
	assert.Equal(t, "simulated://dev", res.Exchange.In.Headers[exchange.HeaderEndpoint])
}

func TestBuild_EndpointHeaderOmitsOptions(t *testing.T) {
	u := cfg.UnitConfig{
		ID:         "sim",
		Connection: "simulated://dev?latency-ms=0&community=s3cret",
		Tags:       map[string]any{"on": "STATE/on:BOOL"},
		Poll:       cfg.PollConfig{IntervalMs: 50, Mode: cfg.ModeImmediate},
	}

	p, closeFn, err := Build(context.Background(), u, driver.NewManager(nil), nil)
	require.NoError(t, err)
	defer closeFn()

	res := p.PollOnce(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, "simulated://dev", res.Exchange.In.Headers[exchange.HeaderEndpoint])
}

func TestBuild_UnknownScheme(t *testing.T) {
	u := cfg.UnitConfig{ID: "x", Connection: "s7://plc", Tags: map[string]any{"a": "b"}}

	_, _, err := Build(context.Background(), u, driver.NewManager(nil), nil)
	assert.Error(t, err)
}
