package catalog

import (
	"context"
	"sort"
	"strings"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Prices are kept with cents precision and must fit NUMERIC(14,2).
const priceScale = 2

var maxPrice = decimal.RequireFromString("999999999999.99")

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return appErrors.AddValidationError("price", "must not be negative")
	}
	if price.Round(priceScale).GreaterThan(maxPrice) {
		return appErrors.AddValidationError("price", "must not exceed "+maxPrice.StringFixed(priceScale))
	}
	return nil
}

type ProductQuery struct {
	Filter store.ProductFilter
	SortBy string
	Desc   bool
	Limit  int
}

func (s *Service) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	req.Name = s.clean(req.Name)
	req.Description = s.clean(req.Description)
	req.Category = s.clean(req.Category)
	req.PieceType = s.clean(req.PieceType)
	req.Color = s.clean(req.Color)
	req.Size = s.clean(req.Size)
	req.Collection = s.clean(req.Collection)
	req.Brand = s.clean(req.Brand)

	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkPrice(*req.Price); err != nil {
		return nil, err
	}

	stock := 0
	if req.StockQuantity != nil {
		stock = *req.StockQuantity
	}

	product := &models.Product{
		ID:            s.newID(),
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price.Round(priceScale),
		Category:      req.Category,
		PieceType:     req.PieceType,
		Color:         req.Color,
		Size:          req.Size,
		Collection:    req.Collection,
		Brand:         req.Brand,
		StockQuantity: stock,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, appErrors.FromStore(err, "Product not found")
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("price", product.Price.StringFixed(priceScale)),
		zap.Int("stock", product.StockQuantity),
	)
	s.changed(ctx)

	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := requireID("product_id", id); err != nil {
		return nil, err
	}

	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, appErrors.FromStore(err, "Product not found")
	}
	return product, nil
}

// ListProducts returns the products matching q.Filter in insertion order, or
// sorted by q.SortBy when set. SearchProducts is the same operation.
func (s *Service) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	f := q.Filter
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return nil, appErrors.AddValidationError("price_min", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, appErrors.AddValidationError("price_min", "must not exceed price_max")
	}

	less, err := productOrdering(q.SortBy)
	if err != nil {
		return nil, err
	}

	products, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return nil, appErrors.FromStore(err, "Product not found")
	}

	if less != nil {
		sort.SliceStable(products, func(i, j int) bool {
			if q.Desc {
				return less(&products[j], &products[i])
			}
			return less(&products[i], &products[j])
		})
	}

	if q.Limit > 0 && len(products) > q.Limit {
		products = products[:q.Limit]
	}

	return products, nil
}

func (s *Service) SearchProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	return s.ListProducts(ctx, q)
}

func productOrdering(field string) (func(a, b *models.Product) bool, error) {
	switch strings.ToLower(field) {
	case "":
		return nil, nil
	case "name":
		return func(a, b *models.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }, nil
	case "price":
		return func(a, b *models.Product) bool { return a.Price.LessThan(b.Price) }, nil
	case "stock", "stock_quantity":
		return func(a, b *models.Product) bool { return a.StockQuantity < b.StockQuantity }, nil
	case "category":
		return func(a, b *models.Product) bool { return strings.ToLower(a.Category) < strings.ToLower(b.Category) }, nil
	case "created_at":
		return func(a, b *models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }, nil
	default:
		return nil, appErrors.AddValidationError("sort_by", "must be one of: name, price, stock, category, created_at")
	}
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	if err := requireID("product_id", id); err != nil {
		return nil, err
	}

	for _, field := range []*string{
		req.Name, req.Description, req.Category, req.PieceType,
		req.Color, req.Size, req.Collection, req.Brand,
	} {
		s.cleanPtr(field)
	}

	if req.Name != nil && *req.Name == "" {
		return nil, appErrors.AddValidationError("name", "must not be empty")
	}
	if req.Price != nil {
		if err := checkPrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	var updated *models.Product
	err := retryOnConflict(func() error {
		product, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return err
		}

		applyProductUpdate(product, req)

		if err := s.store.UpdateProduct(ctx, product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, appErrors.FromStore(err, "Product not found")
	}

	s.logger.Info("product updated", zap.String("product_id", id), zap.Int("version", updated.Version))
	s.changed(ctx)

	return updated, nil
}

func applyProductUpdate(p *models.Product, req models.UpdateProductRequest) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&p.Name, req.Name)
	setString(&p.Description, req.Description)
	setString(&p.Category, req.Category)
	setString(&p.PieceType, req.PieceType)
	setString(&p.Color, req.Color)
	setString(&p.Size, req.Size)
	setString(&p.Collection, req.Collection)
	setString(&p.Brand, req.Brand)

	if req.Price != nil {
		p.Price = req.Price.Round(priceScale)
	}
	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}
}

// DeleteProduct removes the product document. Purchases referencing it are
// kept.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireID("product_id", id); err != nil {
		return err
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return appErrors.FromStore(err, "Product not found")
	}

	s.logger.Info("product deleted", zap.String("product_id", id))
	s.changed(ctx)

	return nil
}
