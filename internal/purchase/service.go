package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/store-mcp/internal/database"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/metrics"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// Invalidator drops cached views derived from purchases.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service registers purchases against live stock. The stock decrement and
// the purchase record are written by a single store call, so no reader sees
// one without the other.
type Service struct {
	store      store.Store
	logger     *zap.Logger
	invalidate Invalidator
	newID      func() string
}

type Option func(*Service)

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidate = inv
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func NewService(st store.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: logger,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Receipt is a committed purchase plus the product stock left after it.
type Receipt struct {
	models.Purchase
	RemainingStock int `json:"remaining_stock"`
}

type BatchItemResult struct {
	Index    int                   `json:"index"`
	Purchase *Receipt              `json:"purchase,omitempty"`
	Error    *appErrors.Descriptor `json:"error,omitempty"`
}

type HistoryQuery struct {
	UserID string
	Limit  int
	Cursor string
}

// Register validates req and commits the purchase. Checks run in this
// order: unknown user or product, non-positive quantity, insufficient stock.
func (s *Service) Register(ctx context.Context, req models.PurchaseRequest) (*Receipt, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.UserID == "" {
		return nil, s.reject(appErrors.AddValidationError("user_id", "is required"))
	}
	if req.ProductID == "" {
		return nil, s.reject(appErrors.AddValidationError("product_id", "is required"))
	}

	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, s.reject(appErrors.FromStore(err, "User not found"))
	}
	product, err := s.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, s.reject(appErrors.FromStore(err, "Product not found"))
	}

	if req.Quantity <= 0 {
		return nil, s.reject(appErrors.AddValidationError("quantity", "must be greater than 0"))
	}
	if product.StockQuantity < req.Quantity {
		return nil, s.reject(insufficientStock(product, req.Quantity))
	}

	purchase := &models.Purchase{
		ID:        s.newID(),
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}

	remaining, err := s.store.CommitPurchase(ctx, purchase)
	if err != nil {
		return nil, s.reject(s.commitError(ctx, err, req))
	}

	metrics.PurchasesTotal.WithLabelValues("committed").Inc()
	metrics.UnitsSold.Add(float64(purchase.Quantity))

	s.logger.Info("purchase registered",
		zap.String("purchase_id", purchase.ID),
		zap.String("user_id", purchase.UserID),
		zap.String("product_id", purchase.ProductID),
		zap.Int("quantity", purchase.Quantity),
		zap.String("total", purchase.Total.StringFixed(2)),
		zap.Int("remaining_stock", remaining),
	)

	if s.invalidate != nil {
		s.invalidate.Invalidate(ctx)
	}

	return &Receipt{Purchase: *purchase, RemainingStock: remaining}, nil
}

// commitError maps a failed commit. The store re-checks everything under
// its own atomicity, so a purchase that passed the pre-checks can still lose
// a race for the last units or for a document being deleted.
func (s *Service) commitError(ctx context.Context, err error, req models.PurchaseRequest) error {
	switch {
	case errors.Is(err, database.ErrInsufficientStock):
		if product, getErr := s.store.GetProduct(ctx, req.ProductID); getErr == nil {
			return insufficientStock(product, req.Quantity).WithError(err)
		}
		return appErrors.FromStore(err, "")
	case errors.Is(err, database.ErrUserNotFound):
		return appErrors.FromStore(err, "User not found")
	case errors.Is(err, database.ErrProductNotFound):
		return appErrors.FromStore(err, "Product not found")
	}

	s.logger.Error("purchase commit failed",
		zap.String("user_id", req.UserID),
		zap.String("product_id", req.ProductID),
		zap.Error(err),
	)
	return appErrors.FromStore(err, "")
}

func insufficientStock(product *models.Product, requested int) *appErrors.AppError {
	return appErrors.InsufficientStockError(
		fmt.Sprintf("Insufficient stock for product '%s': requested %d, available %d",
			product.Name, requested, product.StockQuantity),
	)
}

func (s *Service) reject(err error) error {
	kind := appErrors.ErrCodeInternal
	if appErr, ok := appErrors.IsAppError(err); ok {
		kind = appErr.Code
	}
	metrics.PurchasesTotal.WithLabelValues(kind).Inc()
	return err
}

// BatchItem is one entry of a purchase batch. Err is set when the entry
// could not be decoded; it is reported for that entry alone.
type BatchItem struct {
	Request models.PurchaseRequest
	Err     error
}

// RegisterBatch applies each request independently and in order.
func (s *Service) RegisterBatch(ctx context.Context, reqs []models.PurchaseRequest) ([]BatchItemResult, error) {
	items := make([]BatchItem, len(reqs))
	for i, req := range reqs {
		items[i].Request = req
	}
	return s.RegisterItems(ctx, items)
}

// RegisterItems applies each item independently and in order. A failed or
// malformed item does not undo earlier ones. If ctx ends mid-batch the
// results so far are returned with the context error; those purchases stay
// committed.
func (s *Service) RegisterItems(ctx context.Context, items []BatchItem) ([]BatchItemResult, error) {
	if len(items) == 0 {
		return nil, appErrors.AddValidationError("purchases", "must contain at least one purchase")
	}

	results := make([]BatchItemResult, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if item.Err != nil {
			results = append(results, BatchItemResult{Index: i, Error: appErrors.Describe(s.reject(item.Err))})
			continue
		}

		receipt, err := s.Register(ctx, item.Request)
		results = append(results, BatchItemResult{
			Index:    i,
			Purchase: receipt,
			Error:    appErrors.Describe(err),
		})
	}

	s.logger.Info("purchase batch processed", zap.Int("items", len(results)))

	return results, nil
}

// History lists purchases newest first, optionally for one user. Purchases
// of deleted users are still listed.
func (s *Service) History(ctx context.Context, q HistoryQuery) (*store.CursorPage, error) {
	limit := q.Limit
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 0 || limit > MaxHistoryLimit {
		return nil, appErrors.AddValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxHistoryLimit))
	}

	after, err := store.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, appErrors.AddValidationError("cursor", "is malformed").WithError(err)
	}

	purchases, err := s.store.ListPurchases(ctx, store.PurchaseFilter{
		UserID: strings.TrimSpace(q.UserID),
		Newest: true,
		After:  after,
		Limit:  limit + 1,
	})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}

	return store.PurchasePage(purchases, limit), nil
}
