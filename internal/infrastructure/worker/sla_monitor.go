package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/application/service"
)

// OutstandingScanner lists the sellers that have overdue orders
type OutstandingScanner interface {
	ScanOutstanding(ctx context.Context) ([]*service.Feed, error)
}

// SLAMonitor periodically scans outstanding orders and logs a warning for
// each seller with overdue work. It never changes order state.
type SLAMonitor struct {
	scanner  OutstandingScanner
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSLAMonitor creates a monitor that scans every interval
func NewSLAMonitor(scanner OutstandingScanner, interval time.Duration, logger *zap.Logger) *SLAMonitor {
	timeout := interval / 2
	if timeout < time.Second {
		timeout = time.Second
	}
	return &SLAMonitor{
		scanner:  scanner,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the scan loop; the first scan runs immediately
func (m *SLAMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("sla monitor is already running")
	}
	if m.interval <= 0 {
		return fmt.Errorf("sla monitor interval must be positive, got %s", m.interval)
	}

	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.running = true

	m.logger.Info("SLA monitor started", zap.Duration("interval", m.interval))

	go m.loop(loopCtx, m.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight scan to finish
func (m *SLAMonitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.cancel()
	done := m.done
	m.mu.Unlock()

	<-done
	m.logger.Info("SLA monitor stopped")
	return nil
}

// Name returns the worker name for identification
func (m *SLAMonitor) Name() string {
	return "SLAMonitor"
}

func (m *SLAMonitor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scan(ctx)
		}
	}
}

// scan runs one pass and reports how many sellers were flagged
func (m *SLAMonitor) scan(ctx context.Context) int {
	scanCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	feeds, err := m.scanner.ScanOutstanding(scanCtx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("SLA scan failed", zap.Error(err))
		}
		return 0
	}

	for _, feed := range feeds {
		critical := make([]string, 0, feed.Critical)
		for _, r := range feed.Records {
			if r.Critical {
				critical = append(critical, r.OrderID)
			}
		}
		m.logger.Warn("Seller has overdue orders",
			zap.String("seller_id", feed.SellerID),
			zap.Int("outstanding", feed.Total),
			zap.Int("overdue", feed.Overdue),
			zap.Int("critical", feed.Critical),
			zap.Strings("critical_orders", critical))
	}

	if len(feeds) > 0 {
		m.logger.Info("SLA scan completed", zap.Int("sellers_flagged", len(feeds)))
	}
	return len(feeds)
}
