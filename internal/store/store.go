package store

import (
	"context"
	"strings"
	"time"

	"github.com/safar/store-mcp/internal/models"
	"github.com/shopspring/decimal"
)

// Store persists users, products and purchases. List methods return
// documents in insertion order unless the filter asks otherwise.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	// UpdateUser writes user if its Version still matches the stored one.
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	// UpdateProduct writes product if its Version still matches the stored one.
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// CommitPurchase decrements the product stock by purchase.Quantity only
	// if enough stock remains and records the purchase in the same atomic
	// step. Snapshot fields, prices and CreatedAt are filled in on success
	// and the remaining stock is returned.
	CommitPurchase(ctx context.Context, purchase *models.Purchase) (int, error)
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error)

	Ping(ctx context.Context) error
	Close() error
}

type UserFilter struct {
	IDContains    string
	EmailContains string
	NameContains  string
	MinAge        *int
	MaxAge        *int
}

func (f UserFilter) Match(u *models.User) bool {
	if f.IDContains != "" && !containsFold(u.ID, f.IDContains) {
		return false
	}
	if f.EmailContains != "" && !containsFold(u.Email, f.EmailContains) {
		return false
	}
	if f.NameContains != "" && !containsFold(u.Name, f.NameContains) {
		return false
	}
	if f.MinAge != nil && (u.Age == nil || *u.Age < *f.MinAge) {
		return false
	}
	if f.MaxAge != nil && (u.Age == nil || *u.Age > *f.MaxAge) {
		return false
	}
	return true
}

// ProductFilter matches exact (case-insensitive) category, piece type, color
// and size, substrings of name, collection and brand, an inclusive price
// range and positive stock.
type ProductFilter struct {
	Category           string
	PieceType          string
	Color              string
	Size               string
	NameContains       string
	CollectionContains string
	BrandContains      string
	MinPrice           *decimal.Decimal
	MaxPrice           *decimal.Decimal
	InStock            bool
}

func (f ProductFilter) Match(p *models.Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.PieceType != "" && !strings.EqualFold(p.PieceType, f.PieceType) {
		return false
	}
	if f.Color != "" && !strings.EqualFold(p.Color, f.Color) {
		return false
	}
	if f.Size != "" && !strings.EqualFold(p.Size, f.Size) {
		return false
	}
	if f.NameContains != "" && !containsFold(p.Name, f.NameContains) {
		return false
	}
	if f.CollectionContains != "" && !containsFold(p.Collection, f.CollectionContains) {
		return false
	}
	if f.BrandContains != "" && !containsFold(p.Brand, f.BrandContains) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.StockQuantity <= 0 {
		return false
	}
	return true
}

// PurchaseFilter selects purchases. From and To are inclusive. With Newest
// set results are ordered by creation time descending and After continues a
// previous page.
type PurchaseFilter struct {
	UserID    string
	ProductID string
	From      *time.Time
	To        *time.Time
	Newest    bool
	After     *PurchaseCursor
	Limit     int
}

func (f PurchaseFilter) Match(p *models.Purchase) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.ProductID != "" && p.ProductID != f.ProductID {
		return false
	}
	if f.From != nil && p.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && p.CreatedAt.After(*f.To) {
		return false
	}
	if f.After != nil && !f.After.Precedes(p) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
