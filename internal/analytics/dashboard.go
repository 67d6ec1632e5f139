package analytics

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/safar/store-mcp/internal/cache"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/metrics"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	dashboardTopN     = 5
	lowStockThreshold = 10
	lowStockMax       = 10
	trendMonths       = 6
	uncategorized     = "uncategorized"
)

type Dashboard struct {
	Overview        Overview              `json:"overview"`
	Users           UserAnalytics         `json:"users"`
	Products        ProductAnalytics      `json:"products"`
	Sales           SalesAnalytics        `json:"sales"`
	Recommendations RecommendationMetrics `json:"recommendations"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

type Overview struct {
	TotalUsers         int             `json:"total_users"`
	TotalProducts      int             `json:"total_products"`
	ProductsInStock    int             `json:"products_in_stock"`
	ProductsOutOfStock int             `json:"products_out_of_stock"`
	TotalPurchases     int             `json:"total_purchases"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	AverageOrderValue  decimal.Decimal `json:"average_order_value"`
}

type UserAnalytics struct {
	TotalUsers          int         `json:"total_users"`
	ActiveBuyers        int         `json:"active_buyers"`
	InactiveUsers       int         `json:"inactive_users"`
	ConversionRate      float64     `json:"conversion_rate"`
	RecentRegistrations int         `json:"recent_registrations_30d"`
	AgeDistribution     []AgeBucket `json:"age_distribution"`
}

type AgeBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type ProductAnalytics struct {
	CategoryDistribution []CategoryStats `json:"category_distribution"`
	TopSelling           []ProductSales  `json:"top_selling_products"`
	LowStock             []LowStockItem  `json:"low_stock_alerts"`
	Prices               PriceStats      `json:"price_analysis"`
}

type CategoryStats struct {
	Category     string          `json:"category"`
	Count        int             `json:"count"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

type LowStockItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
}

type PriceStats struct {
	Average decimal.Decimal `json:"average_price"`
	Min     decimal.Decimal `json:"min_price"`
	Max     decimal.Decimal `json:"max_price"`
}

type SalesAnalytics struct {
	MonthlyTrend    []MonthlySales  `json:"monthly_sales_trend"`
	RecentSales     int             `json:"recent_sales_7d"`
	BestCustomers   []CustomerSpend `json:"best_customers"`
	SalesByCategory []CategorySales `json:"sales_by_category"`
}

type MonthlySales struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"total_sales"`
	Orders  int             `json:"total_orders"`
	Items   int             `json:"total_items"`
}

type CustomerSpend struct {
	UserID     string          `json:"user_id"`
	UserName   string          `json:"user_name"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Orders     int             `json:"total_orders"`
}

type CategorySales struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"total_revenue"`
	Items    int             `json:"total_items_sold"`
}

type RecommendationMetrics struct {
	EligibleUsers     int          `json:"users_eligible_for_recommendations"`
	Coverage          float64      `json:"recommendation_coverage"`
	PopularCategories []RankedTerm `json:"popular_categories"`
	ColorPreferences  []RankedTerm `json:"color_preferences"`
}

// RankedTerm is a category or color with the units bought in it.
type RankedTerm struct {
	Name  string `json:"name"`
	Units int    `json:"units"`
}

var ageBuckets = []struct {
	label  string
	maxAge int
}{
	{"0-17", 17},
	{"18-24", 24},
	{"25-34", 34},
	{"35-44", 44},
	{"45-54", 54},
	{"55+", math.MaxInt},
}

// Dashboard returns the business summary, served from the cache while it
// is fresh. Cache failures only cost a recomputation.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var cached Dashboard
	found, err := s.cache.Get(ctx, cache.DashboardKey, &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	}
	if found {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	dashboard, err := s.buildDashboard(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.DashboardKey, dashboard, s.dashboardTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}

	return dashboard, nil
}

func (s *Service) buildDashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.store.ListUsers(ctx, store.UserFilter{})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}
	products, err := s.store.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}
	purchases, err := s.store.ListPurchases(ctx, store.PurchaseFilter{})
	if err != nil {
		return nil, appErrors.FromStore(err, "")
	}

	now := s.now().UTC()
	buyers := activeBuyers(users, purchases)

	return &Dashboard{
		Overview:        overview(users, products, purchases),
		Users:           userAnalytics(users, buyers, now),
		Products:        productAnalytics(products, purchases),
		Sales:           salesAnalytics(purchases, now),
		Recommendations: recommendationMetrics(users, buyers, purchases),
		GeneratedAt:     now,
	}, nil
}

func sumTotals(purchases []models.Purchase) decimal.Decimal {
	total := decimal.Zero
	for _, p := range purchases {
		total = total.Add(p.Total)
	}
	return total
}

func overview(users []models.User, products []models.Product, purchases []models.Purchase) Overview {
	inStock := 0
	for i := range products {
		if products[i].InStock() {
			inStock++
		}
	}

	revenue := sumTotals(purchases)
	avgOrder := decimal.Zero
	if len(purchases) > 0 {
		avgOrder = revenue.Div(decimal.NewFromInt(int64(len(purchases)))).Round(2)
	}

	return Overview{
		TotalUsers:         len(users),
		TotalProducts:      len(products),
		ProductsInStock:    inStock,
		ProductsOutOfStock: len(products) - inStock,
		TotalPurchases:     len(purchases),
		TotalRevenue:       revenue,
		AverageOrderValue:  avgOrder,
	}
}

// activeBuyers returns the ids of existing users with at least one purchase.
func activeBuyers(users []models.User, purchases []models.Purchase) map[string]bool {
	exists := make(map[string]bool, len(users))
	for _, u := range users {
		exists[u.ID] = true
	}
	buyers := make(map[string]bool)
	for _, p := range purchases {
		if exists[p.UserID] {
			buyers[p.UserID] = true
		}
	}
	return buyers
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

func userAnalytics(users []models.User, buyers map[string]bool, now time.Time) UserAnalytics {
	since := now.AddDate(0, 0, -30)
	recent := 0
	counts := make([]int, len(ageBuckets))
	for _, u := range users {
		if !u.CreatedAt.Before(since) {
			recent++
		}
		if u.Age == nil {
			continue
		}
		for i, b := range ageBuckets {
			if *u.Age <= b.maxAge {
				counts[i]++
				break
			}
		}
	}

	distribution := make([]AgeBucket, 0, len(ageBuckets))
	for i, b := range ageBuckets {
		if counts[i] > 0 {
			distribution = append(distribution, AgeBucket{Range: b.label, Count: counts[i]})
		}
	}

	return UserAnalytics{
		TotalUsers:          len(users),
		ActiveBuyers:        len(buyers),
		InactiveUsers:       len(users) - len(buyers),
		ConversionRate:      percent(len(buyers), len(users)),
		RecentRegistrations: recent,
		AgeDistribution:     distribution,
	}
}

func categoryLabel(category string) string {
	if strings.TrimSpace(category) == "" {
		return uncategorized
	}
	return category
}

func productAnalytics(products []models.Product, purchases []models.Purchase) ProductAnalytics {
	type acc struct {
		count int
		sum   decimal.Decimal
	}
	byCategory := make(map[string]*acc)
	lowStock := []LowStockItem{}
	prices := PriceStats{Average: decimal.Zero, Min: decimal.Zero, Max: decimal.Zero}
	priceSum := decimal.Zero

	for i, p := range products {
		label := categoryLabel(p.Category)
		a, ok := byCategory[label]
		if !ok {
			a = &acc{sum: decimal.Zero}
			byCategory[label] = a
		}
		a.count++
		a.sum = a.sum.Add(p.Price)

		if p.StockQuantity > 0 && p.StockQuantity < lowStockThreshold && len(lowStock) < lowStockMax {
			lowStock = append(lowStock, LowStockItem{ID: p.ID, Name: p.Name, StockQuantity: p.StockQuantity})
		}

		priceSum = priceSum.Add(p.Price)
		if i == 0 || p.Price.LessThan(prices.Min) {
			prices.Min = p.Price
		}
		if i == 0 || p.Price.GreaterThan(prices.Max) {
			prices.Max = p.Price
		}
	}
	if len(products) > 0 {
		prices.Average = priceSum.Div(decimal.NewFromInt(int64(len(products)))).Round(2)
	}

	categories := make([]CategoryStats, 0, len(byCategory))
	for label, a := range byCategory {
		categories = append(categories, CategoryStats{
			Category:     label,
			Count:        a.count,
			AveragePrice: a.sum.Div(decimal.NewFromInt(int64(a.count))).Round(2),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Category < categories[j].Category
	})

	return ProductAnalytics{
		CategoryDistribution: categories,
		TopSelling:           topProducts(purchases, dashboardTopN),
		LowStock:             lowStock,
		Prices:               prices,
	}
}

func salesAnalytics(purchases []models.Purchase, now time.Time) SalesAnalytics {
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)
	weekAgo := now.AddDate(0, 0, -7)

	months := make(map[string]*MonthlySales)
	customers := make(map[string]*CustomerSpend)
	categories := make(map[string]*CategorySales)
	recent := 0

	for _, p := range purchases {
		created := p.CreatedAt.UTC()
		if !created.Before(firstMonth) {
			key := created.Format("2006-01")
			m, ok := months[key]
			if !ok {
				m = &MonthlySales{Month: key, Revenue: decimal.Zero}
				months[key] = m
			}
			m.Revenue = m.Revenue.Add(p.Total)
			m.Orders++
			m.Items += p.Quantity
		}
		if !created.Before(weekAgo) {
			recent++
		}

		c, ok := customers[p.UserID]
		if !ok {
			c = &CustomerSpend{UserID: p.UserID, TotalSpent: decimal.Zero}
			customers[p.UserID] = c
		}
		c.UserName = p.UserName
		c.TotalSpent = c.TotalSpent.Add(p.Total)
		c.Orders++

		label := categoryLabel(p.Category)
		cs, ok := categories[label]
		if !ok {
			cs = &CategorySales{Category: label, Revenue: decimal.Zero}
			categories[label] = cs
		}
		cs.Revenue = cs.Revenue.Add(p.Total)
		cs.Items += p.Quantity
	}

	trend := make([]MonthlySales, 0, len(months))
	for _, m := range months {
		trend = append(trend, *m)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })

	best := make([]CustomerSpend, 0, len(customers))
	for _, c := range customers {
		best = append(best, *c)
	}
	sort.Slice(best, func(i, j int) bool {
		if !best[i].TotalSpent.Equal(best[j].TotalSpent) {
			return best[i].TotalSpent.GreaterThan(best[j].TotalSpent)
		}
		return best[i].UserID < best[j].UserID
	})
	if len(best) > dashboardTopN {
		best = best[:dashboardTopN]
	}

	byCategory := make([]CategorySales, 0, len(categories))
	for _, cs := range categories {
		byCategory = append(byCategory, *cs)
	}
	sort.Slice(byCategory, func(i, j int) bool {
		if !byCategory[i].Revenue.Equal(byCategory[j].Revenue) {
			return byCategory[i].Revenue.GreaterThan(byCategory[j].Revenue)
		}
		return byCategory[i].Category < byCategory[j].Category
	})

	return SalesAnalytics{
		MonthlyTrend:    trend,
		RecentSales:     recent,
		BestCustomers:   best,
		SalesByCategory: byCategory,
	}
}

func recommendationMetrics(users []models.User, buyers map[string]bool, purchases []models.Purchase) RecommendationMetrics {
	categories := make(map[string]int)
	colors := make(map[string]int)
	for _, p := range purchases {
		categories[categoryLabel(p.Category)] += p.Quantity
		if p.Color != "" {
			colors[p.Color] += p.Quantity
		}
	}

	return RecommendationMetrics{
		EligibleUsers:     len(buyers),
		Coverage:          percent(len(buyers), len(users)),
		PopularCategories: rankTerms(categories, dashboardTopN),
		ColorPreferences:  rankTerms(colors, dashboardTopN),
	}
}

func rankTerms(units map[string]int, n int) []RankedTerm {
	terms := make([]RankedTerm, 0, len(units))
	for name, u := range units {
		terms = append(terms, RankedTerm{Name: name, Units: u})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Units != terms[j].Units {
			return terms[i].Units > terms[j].Units
		}
		return terms[i].Name < terms[j].Name
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
