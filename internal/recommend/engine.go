package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/safar/store-mcp/internal/config"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	StrategyPersonalized = "personalized"
	StrategyPopularity   = "popularity"
)

// Weights tune the personalized score:
//
//	Category * share(category) + Price * 1/(1 + |price-avg|/avg) + StockBonus
type Weights struct {
	Category   float64
	Price      float64
	StockBonus float64
}

type Recommendation struct {
	Product models.Product `json:"product"`
	Score   float64        `json:"score"`
}

type Result struct {
	UserID   string           `json:"user_id"`
	Strategy string           `json:"strategy"`
	Items    []Recommendation `json:"items"`
}

// Engine ranks in-stock products for a user. Rankings depend only on the
// stored purchases and catalog, so unchanged state yields the same list.
type Engine struct {
	store        store.Store
	weights      Weights
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

func NewEngine(st store.Store, cfg config.RecommendationConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store: st,
		weights: Weights{
			Category:   cfg.CategoryWeight,
			Price:      cfg.PriceWeight,
			StockBonus: cfg.StockBonus,
		},
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		logger:       logger,
	}
}

// profile summarizes a purchase history.
type profile struct {
	categoryQty map[string]int
	totalQty    int
	avgPrice    float64
	purchased   map[string]bool
}

func buildProfile(purchases []models.Purchase) profile {
	p := profile{
		categoryQty: make(map[string]int),
		purchased:   make(map[string]bool),
	}

	sum := decimal.Zero
	for _, purchase := range purchases {
		p.purchased[purchase.ProductID] = true
		p.totalQty += purchase.Quantity
		if key := categoryKey(purchase.Category); key != "" {
			p.categoryQty[key] += purchase.Quantity
		}
		sum = sum.Add(purchase.UnitPrice)
	}
	if len(purchases) > 0 {
		p.avgPrice = sum.Div(decimal.NewFromInt(int64(len(purchases)))).InexactFloat64()
	}

	return p
}

func categoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

func (e *Engine) score(p profile, product *models.Product) float64 {
	var share float64
	if p.totalQty > 0 {
		share = float64(p.categoryQty[categoryKey(product.Category)]) / float64(p.totalQty)
	}

	price := product.Price.InexactFloat64()
	distance := price
	if p.avgPrice > 0 {
		distance = math.Abs(price-p.avgPrice) / p.avgPrice
	}
	proximity := 1 / (1 + distance)

	return e.weights.Category*share + e.weights.Price*proximity + e.weights.StockBonus
}

// DefaultLimit is the list size used when a caller does not ask for one.
func (e *Engine) DefaultLimit() int {
	return e.defaultLimit
}

// Recommend returns at most limit in-stock products for userID. Users with
// a purchase history get the personalized ranking; others get the
// popularity ranking.
func (e *Engine) Recommend(ctx context.Context, userID string, limit int) (*Result, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.AddValidationError("user_id", "is required")
	}
	if limit < 1 || limit > e.maxLimit {
		return nil, appErrors.AddValidationError("limit", fmt.Sprintf("must be between 1 and %d", e.maxLimit))
	}

	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, appErrors.FromStore(err, "User not found")
	}

	history, err := e.store.ListPurchases(ctx, store.PurchaseFilter{UserID: userID, Newest: true})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}

	var result *Result
	if len(history) == 0 {
		result, err = e.popular(ctx, limit)
	} else {
		result, err = e.personalized(ctx, history, limit)
	}
	if err != nil {
		return nil, err
	}
	result.UserID = userID

	e.logger.Debug("recommendations computed",
		zap.String("user_id", userID),
		zap.String("strategy", result.Strategy),
		zap.Int("items", len(result.Items)),
	)

	return result, nil
}

func (e *Engine) personalized(ctx context.Context, history []models.Purchase, limit int) (*Result, error) {
	prof := buildProfile(history)

	products, err := e.store.ListProducts(ctx, store.ProductFilter{InStock: true})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}

	items := make([]Recommendation, 0, len(products))
	for i := range products {
		if prof.purchased[products[i].ID] {
			continue
		}
		items = append(items, Recommendation{Product: products[i], Score: e.score(prof, &products[i])})
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Product.StockQuantity != b.Product.StockQuantity {
			return a.Product.StockQuantity > b.Product.StockQuantity
		}
		return a.Product.ID < b.Product.ID
	})

	return &Result{Strategy: StrategyPersonalized, Items: truncate(items, limit)}, nil
}

// popular ranks in-stock products by units sold across all users, cheapest
// first on ties. The score is the number of units sold.
func (e *Engine) popular(ctx context.Context, limit int) (*Result, error) {
	purchases, err := e.store.ListPurchases(ctx, store.PurchaseFilter{})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}
	sold := make(map[string]int)
	for _, p := range purchases {
		sold[p.ProductID] += p.Quantity
	}

	products, err := e.store.ListProducts(ctx, store.ProductFilter{InStock: true})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}

	items := make([]Recommendation, 0, len(products))
	for _, product := range products {
		items = append(items, Recommendation{Product: product, Score: float64(sold[product.ID])})
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Product.Price.Equal(b.Product.Price) {
			return a.Product.Price.LessThan(b.Product.Price)
		}
		return a.Product.ID < b.Product.ID
	})

	return &Result{Strategy: StrategyPopularity, Items: truncate(items, limit)}, nil
}

func truncate(items []Recommendation, limit int) []Recommendation {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
