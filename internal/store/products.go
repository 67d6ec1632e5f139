package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/store-mcp/internal/database"
	"github.com/safar/store-mcp/internal/models"
)

const productColumns = `id, name, description, price, category, piece_type, color, size,
	collection, brand, stock_quantity, created_at, updated_at, version`

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Category,
		&product.PieceType,
		&product.Color,
		&product.Size,
		&product.Collection,
		&product.Brand,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (s *Postgres) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, category, piece_type, color, size,
		                      collection, brand, stock_quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, version`

	err := s.db.QueryRowContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.PieceType,
		product.Color,
		product.Size,
		product.Collection,
		product.Brand,
		product.StockQuantity,
	).Scan(&product.CreatedAt, &product.UpdatedAt, &product.Version)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (s *Postgres) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (s *Postgres) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var conds conditions
	if filter.Category != "" {
		conds.add("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.PieceType != "" {
		conds.add("LOWER(piece_type) = LOWER(?)", filter.PieceType)
	}
	if filter.Color != "" {
		conds.add("LOWER(color) = LOWER(?)", filter.Color)
	}
	if filter.Size != "" {
		conds.add("LOWER(size) = LOWER(?)", filter.Size)
	}
	if filter.NameContains != "" {
		conds.add("STRPOS(LOWER(name), LOWER(?)) > 0", filter.NameContains)
	}
	if filter.CollectionContains != "" {
		conds.add("STRPOS(LOWER(collection), LOWER(?)) > 0", filter.CollectionContains)
	}
	if filter.BrandContains != "" {
		conds.add("STRPOS(LOWER(brand), LOWER(?)) > 0", filter.BrandContains)
	}
	if filter.MinPrice != nil {
		conds.add("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conds.add("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock {
		conds.add("stock_quantity > 0")
	}

	query := `SELECT ` + productColumns + ` FROM products` + conds.where() + ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, conds.args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct uses the version column for optimistic locking so a manual
// edit never overwrites a concurrent stock decrement.
func (s *Postgres) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, piece_type = $5,
		    color = $6, size = $7, collection = $8, brand = $9, stock_quantity = $10,
		    updated_at = NOW(), version = version + 1
		WHERE id = $11 AND version = $12
		RETURNING updated_at, version`

	err := s.db.QueryRowContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.PieceType,
		product.Color,
		product.Size,
		product.Collection,
		product.Brand,
		product.StockQuantity,
		product.ID,
		product.Version,
	).Scan(&product.UpdatedAt, &product.Version)
	if err == nil {
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update product: %w", err)
	}

	exists, err := s.exists(ctx, "products", product.ID)
	if err != nil {
		return err
	}
	if !exists {
		return database.ErrProductNotFound
	}
	return database.ErrOptimisticLockFailed
}

func (s *Postgres) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
