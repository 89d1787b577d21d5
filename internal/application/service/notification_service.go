package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/domain/entity"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// SLAWindow bounds how long an order may stay in a status.
// An order is overdue after Window and critical after Window + Critical.
type SLAWindow struct {
	Window   time.Duration
	Critical time.Duration
}

// SLAPolicy maps outstanding order statuses to their windows
type SLAPolicy map[workflow.Status]SLAWindow

// DefaultSLAPolicy returns the windows used when nothing is configured
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		workflow.OrderPending:    {Window: 24 * time.Hour, Critical: 24 * time.Hour},
		workflow.OrderProcessing: {Window: 48 * time.Hour, Critical: 48 * time.Hour},
	}
}

// NotificationRecord is one outstanding order as shown on the seller dashboard
type NotificationRecord struct {
	OrderID          string          `json:"order_id"`
	Status           workflow.Status `json:"status"`
	Since            time.Time       `json:"since"`
	AgeSeconds       int64           `json:"age_seconds"`
	Overdue          bool            `json:"overdue"`
	Critical         bool            `json:"critical"`
	Feedback         string          `json:"feedback,omitempty"`
	TotalAmountCents int64           `json:"total_amount_cents"`
}

// Feed summarizes a seller's order workload
type Feed struct {
	SellerID    string               `json:"seller_id"`
	Total       int                  `json:"total"`
	Pending     int                  `json:"pending"`
	Overdue     int                  `json:"overdue"`
	Critical    int                  `json:"critical"`
	Records     []NotificationRecord `json:"records"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// NotificationService derives the read-only notification feed
type NotificationService interface {
	Summarize(ctx context.Context, sellerID string) (*Feed, error)

	// ScanOutstanding builds one feed per seller with pending or processing
	// orders, keeping only sellers that have overdue orders
	ScanOutstanding(ctx context.Context) ([]*Feed, error)
}

type notificationServiceImpl struct {
	store  port.EntityStore
	policy SLAPolicy
	logger Logger
	now    Clock
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store port.EntityStore, policy SLAPolicy, logger Logger) NotificationService {
	if policy == nil {
		policy = DefaultSLAPolicy()
	}
	return &notificationServiceImpl{
		store:  store,
		policy: policy,
		logger: logger,
		now:    systemClock,
	}
}

// Summarize walks every order of the seller and builds the feed
func (s *notificationServiceImpl) Summarize(ctx context.Context, sellerID string) (*Feed, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, workflow.NewValidationError("seller_id", "seller is required")
	}

	var orders []*entity.Order
	query := port.StatusQuery{Kind: workflow.KindOrder, SellerID: sellerID, Limit: port.MaxPageSize}
	for e, err := range port.Entities(ctx, s.store, query) {
		if err != nil {
			s.logger.Error("Failed to load seller orders", "error", err, "seller_id", sellerID)
			return nil, err
		}
		if o, ok := e.(*entity.Order); ok {
			orders = append(orders, o)
		}
	}

	feed := BuildFeed(orders, s.policy, s.now())
	feed.SellerID = sellerID
	return feed, nil
}

// ScanOutstanding walks every outstanding order once and groups them by seller
func (s *notificationServiceImpl) ScanOutstanding(ctx context.Context) ([]*Feed, error) {
	bySeller := make(map[string][]*entity.Order)
	query := port.StatusQuery{
		Kind:     workflow.KindOrder,
		Statuses: []workflow.Status{workflow.OrderPending, workflow.OrderProcessing},
		Limit:    port.MaxPageSize,
	}
	for e, err := range port.Entities(ctx, s.store, query) {
		if err != nil {
			s.logger.Error("Failed to scan outstanding orders", "error", err)
			return nil, err
		}
		if o, ok := e.(*entity.Order); ok {
			bySeller[o.SellerID] = append(bySeller[o.SellerID], o)
		}
	}

	now := s.now()
	feeds := make([]*Feed, 0, len(bySeller))
	for sellerID, orders := range bySeller {
		feed := BuildFeed(orders, s.policy, now)
		if feed.Overdue == 0 {
			continue
		}
		feed.SellerID = sellerID
		feeds = append(feeds, feed)
	}

	sort.Slice(feeds, func(i, j int) bool {
		if feeds[i].Critical != feeds[j].Critical {
			return feeds[i].Critical > feeds[j].Critical
		}
		return feeds[i].SellerID < feeds[j].SellerID
	})
	return feeds, nil
}

// BuildFeed is a pure projection of orders onto SLA indicators
func BuildFeed(orders []*entity.Order, policy SLAPolicy, now time.Time) *Feed {
	feed := &Feed{Total: len(orders), Records: []NotificationRecord{}, GeneratedAt: now}

	for _, o := range orders {
		if o.Status != workflow.OrderPending && o.Status != workflow.OrderProcessing {
			continue
		}
		feed.Pending++

		since := o.StatusSince()
		age := now.Sub(since)
		if age < 0 {
			age = 0
		}

		record := NotificationRecord{
			OrderID:          o.ID,
			Status:           o.Status,
			Since:            since,
			AgeSeconds:       int64(age / time.Second),
			Feedback:         o.LatestFeedback(),
			TotalAmountCents: o.TotalAmountCents,
		}
		if w, ok := policy[o.Status]; ok && w.Window > 0 {
			record.Overdue = age > w.Window
			record.Critical = age > w.Window+w.Critical
		}
		if record.Overdue {
			feed.Overdue++
		}
		if record.Critical {
			feed.Critical++
		}

		feed.Records = append(feed.Records, record)
	}

	sort.SliceStable(feed.Records, func(i, j int) bool {
		a, b := feed.Records[i], feed.Records[j]
		if a.Critical != b.Critical {
			return a.Critical
		}
		if a.Overdue != b.Overdue {
			return a.Overdue
		}
		if !a.Since.Equal(b.Since) {
			return a.Since.Before(b.Since)
		}
		return a.OrderID < b.OrderID
	})

	return feed
}
