package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/event"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlitetest"
)

var (
	admin    = entity.Actor{ID: "admin-1", Role: workflow.RoleAdmin}
	seller1  = entity.Actor{ID: "seller-1", Role: workflow.RoleSeller}
	seller2  = entity.Actor{ID: "seller-2", Role: workflow.RoleSeller}
	customer = entity.Actor{ID: "cust-1", Role: workflow.RoleCustomer}
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]event.Type, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

// mockStore lets a test replace any store call
type mockStore struct {
	createFunc func(ctx context.Context, e entity.WorkflowEntity) error
	loadFunc   func(ctx context.Context, id string) (entity.WorkflowEntity, error)
	saveFunc   func(ctx context.Context, e entity.WorkflowEntity, expectedVersion int64) error
	queryFunc  func(ctx context.Context, q port.StatusQuery) (*port.Page, error)
	saveCalls  int
}

func (m *mockStore) Create(ctx context.Context, e entity.WorkflowEntity) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, e)
	}
	e.Base().Version = 1
	return nil
}

func (m *mockStore) Load(ctx context.Context, id string) (entity.WorkflowEntity, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, id)
	}
	return nil, workflow.ErrNotFound
}

func (m *mockStore) Save(ctx context.Context, e entity.WorkflowEntity, expectedVersion int64) error {
	m.saveCalls++
	if m.saveFunc != nil {
		return m.saveFunc(ctx, e, expectedVersion)
	}
	e.Base().Version = expectedVersion + 1
	return nil
}

func (m *mockStore) QueryByStatus(ctx context.Context, q port.StatusQuery) (*port.Page, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, q)
	}
	return &port.Page{}, nil
}

type mockProductCounts struct {
	counts map[string]int
	err    error
}

func (m *mockProductCounts) SellerProductCount(ctx context.Context, sellerID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[sellerID], nil
}

func (m *mockProductCounts) SetSellerProductCount(ctx context.Context, sellerID string, count int) error {
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[sellerID] = count
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// fixedClock returns a clock that reads the time from *now
func fixedClock(now *time.Time) Clock {
	return func() time.Time { return *now }
}

// harness wires every service on a fresh SQLite database
type harness struct {
	db        *sqlite.DB
	store     *repository.EntityRepository
	catalog   *repository.CatalogRepository
	counts    *repository.ProductCountRepository
	publisher *recordingPublisher
	now       time.Time

	orders        *orderServiceImpl
	sellers       *sellerServiceImpl
	categories    *categoryServiceImpl
	notifications *notificationServiceImpl
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := sqlitetest.Open(t)
	logger := zap.NewNop()
	registry := workflow.DefaultRegistry(workflow.DefaultPolicy())

	h := &harness{
		db:        db,
		store:     repository.NewEntityRepository(db, logger),
		catalog:   repository.NewCatalogRepository(db, logger),
		counts:    repository.NewProductCountRepository(db, logger),
		publisher: &recordingPublisher{},
		now:       time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC),
	}

	h.orders = NewOrderService(h.store, registry, h.publisher, &mockLogger{}).(*orderServiceImpl)
	h.sellers = NewSellerService(h.store, h.counts, registry, h.publisher, &mockLogger{}).(*sellerServiceImpl)
	h.categories = NewCategoryService(h.store, h.catalog, db, registry, h.publisher, &mockLogger{}).(*categoryServiceImpl)
	h.notifications = NewNotificationService(h.store, DefaultSLAPolicy(), &mockLogger{}).(*notificationServiceImpl)

	clock := fixedClock(&h.now)
	h.orders.now = clock
	h.sellers.now = clock
	h.categories.now = clock
	h.notifications.now = clock

	return h
}

// advance moves the harness clock forward
func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}
