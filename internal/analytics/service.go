package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/safar/store-mcp/internal/cache"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultTopN = 10
	MaxTopN     = 100
)

// Service answers read-only aggregate queries over purchases and products.
// Every query tolerates an empty store.
type Service struct {
	store        store.Store
	cache        cache.Cache
	dashboardTTL time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

type Option func(*Service)

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.dashboardTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(st store.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		cache:  cache.Noop{},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DateRange bounds are inclusive; a nil bound is open.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

type Revenue struct {
	Total     decimal.Decimal `json:"total"`
	Purchases int             `json:"purchases"`
	Range     *DateRange      `json:"range,omitempty"`
}

type ProductSales struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitsSold   int             `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

func (s *Service) TotalRevenue(ctx context.Context, r *DateRange) (*Revenue, error) {
	filter := store.PurchaseFilter{}
	if r != nil {
		if r.From != nil && r.To != nil && r.From.After(*r.To) {
			return nil, appErrors.AddValidationError("start_date", "must not be after end_date")
		}
		filter.From, filter.To = r.From, r.To
	}

	purchases, err := s.store.ListPurchases(ctx, filter)
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}

	total := decimal.Zero
	for _, p := range purchases {
		total = total.Add(p.Total)
	}

	return &Revenue{Total: total, Purchases: len(purchases), Range: r}, nil
}

func validateTopN(field string, n int) (int, error) {
	if n == 0 {
		return DefaultTopN, nil
	}
	if n < 0 || n > MaxTopN {
		return 0, appErrors.AddValidationError(field, fmt.Sprintf("must be between 1 and %d", MaxTopN))
	}
	return n, nil
}

// TopProducts ranks products by units sold, ties broken by product id. The
// name is the one recorded on the most recent purchase, so deleted products
// are still listed.
func (s *Service) TopProducts(ctx context.Context, n int) ([]ProductSales, error) {
	n, err := validateTopN("n", n)
	if err != nil {
		return nil, err
	}

	purchases, err := s.store.ListPurchases(ctx, store.PurchaseFilter{})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}

	return topProducts(purchases, n), nil
}

func topProducts(purchases []models.Purchase, n int) []ProductSales {
	byID := make(map[string]*ProductSales)
	for _, p := range purchases {
		sales, ok := byID[p.ProductID]
		if !ok {
			sales = &ProductSales{ProductID: p.ProductID, Revenue: decimal.Zero}
			byID[p.ProductID] = sales
		}
		// purchases arrive in insertion order, so the last name wins
		sales.ProductName = p.ProductName
		sales.UnitsSold += p.Quantity
		sales.Revenue = sales.Revenue.Add(p.Total)
	}

	ranked := make([]ProductSales, 0, len(byID))
	for _, sales := range byID {
		ranked = append(ranked, *sales)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].UnitsSold != ranked[j].UnitsSold {
			return ranked[i].UnitsSold > ranked[j].UnitsSold
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// PurchaseCount counts purchase records, for one user when userID is set.
func (s *Service) PurchaseCount(ctx context.Context, userID string) (int, error) {
	purchases, err := s.store.ListPurchases(ctx, store.PurchaseFilter{UserID: userID})
	if err != nil {
		return 0, appErrors.FromStore(err, "")
	}
	return len(purchases), nil
}

func (s *Service) RecentPurchases(ctx context.Context, n int) ([]models.Purchase, error) {
	n, err := validateTopN("n", n)
	if err != nil {
		return nil, err
	}

	purchases, err := s.store.ListPurchases(ctx, store.PurchaseFilter{Newest: true, Limit: n})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}
	return purchases, nil
}
