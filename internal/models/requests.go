package models

import "github.com/shopspring/decimal"

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,phone"`
	Age   *int   `json:"age,omitempty" validate:"omitempty,gt=0,lt=150"`
}

// UpdateUserRequest carries only the fields to change.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Age   *int    `json:"age,omitempty" validate:"omitempty,gt=0,lt=150"`
}

type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Description   string           `json:"description,omitempty" validate:"max=2000"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	Category      string           `json:"category,omitempty" validate:"max=100"`
	PieceType     string           `json:"piece_type,omitempty" validate:"max=100"`
	Color         string           `json:"color,omitempty" validate:"max=50"`
	Size          string           `json:"size,omitempty" validate:"max=20"`
	Collection    string           `json:"collection,omitempty" validate:"max=100"`
	Brand         string           `json:"brand,omitempty" validate:"max=100"`
	StockQuantity *int             `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
}

type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	PieceType     *string          `json:"piece_type,omitempty" validate:"omitempty,max=100"`
	Color         *string          `json:"color,omitempty" validate:"omitempty,max=50"`
	Size          *string          `json:"size,omitempty" validate:"omitempty,max=20"`
	Collection    *string          `json:"collection,omitempty" validate:"omitempty,max=100"`
	Brand         *string          `json:"brand,omitempty" validate:"omitempty,max=100"`
	StockQuantity *int             `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
}

type PurchaseRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}
