package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/marketplace-workflow/internal/application/service"
)

type mockScanner struct {
	calls    atomic.Int32
	scanFunc func(ctx context.Context) ([]*service.Feed, error)
}

func (m *mockScanner) ScanOutstanding(ctx context.Context) ([]*service.Feed, error) {
	m.calls.Add(1)
	if m.scanFunc != nil {
		return m.scanFunc(ctx)
	}
	return nil, nil
}

func TestSLAMonitor_ScanLogsOverdueSellers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scanner := &mockScanner{scanFunc: func(context.Context) ([]*service.Feed, error) {
		return []*service.Feed{{
			SellerID: "seller-1",
			Total:    3,
			Overdue:  2,
			Critical: 1,
			Records: []service.NotificationRecord{
				{OrderID: "o-1", Overdue: true, Critical: true},
				{OrderID: "o-2", Overdue: true},
				{OrderID: "o-3"},
			},
		}}, nil
	}}
	m := NewSLAMonitor(scanner, time.Minute, zap.New(core))

	flagged := m.scan(context.Background())

	assert.Equal(t, 1, flagged)
	warnings := logs.FilterMessage("Seller has overdue orders").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.Equal(t, "seller-1", fields["seller_id"])
	assert.EqualValues(t, 2, fields["overdue"])
	assert.EqualValues(t, 1, fields["critical"])
	assert.Equal(t, []interface{}{"o-1"}, fields["critical_orders"])
}

func TestSLAMonitor_ScanError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scanner := &mockScanner{scanFunc: func(context.Context) ([]*service.Feed, error) {
		return nil, errors.New("database is locked")
	}}
	m := NewSLAMonitor(scanner, time.Minute, zap.New(core))

	assert.Equal(t, 0, m.scan(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("SLA scan failed").Len())
}

func TestSLAMonitor_StartStop(t *testing.T) {
	scanner := &mockScanner{}
	m := NewSLAMonitor(scanner, 10*time.Millisecond, zap.NewNop())

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()))

	assert.Eventually(t, func() bool { return scanner.calls.Load() >= 2 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
	after := scanner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, scanner.calls.Load())

	// Stopping twice is harmless
	require.NoError(t, m.Stop())
}

func TestSLAMonitor_RejectsNonPositiveInterval(t *testing.T) {
	m := NewSLAMonitor(&mockScanner{}, 0, zap.NewNop())
	assert.Error(t, m.Start(context.Background()))
}

type stubWorker struct {
	name     string
	startErr error
	started  bool
	stopped  bool
}

func (w *stubWorker) Start(context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	return nil
}

func (w *stubWorker) Stop() error {
	w.stopped = true
	return nil
}

func (w *stubWorker) Name() string { return w.name }

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())
	ok := &stubWorker{name: "ok"}
	broken := &stubWorker{name: "broken", startErr: errors.New("no")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.False(t, broken.started)
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, ok.stopped)

	require.NoError(t, m.StopAll())
}
