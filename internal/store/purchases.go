package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/store-mcp/internal/database"
	"github.com/safar/store-mcp/internal/models"
)

const purchaseColumns = `seq, id, user_id, user_name, user_email, product_id, product_name,
	category, color, quantity, unit_price, total, created_at`

func scanPurchase(row rowScanner) (*models.Purchase, error) {
	p := &models.Purchase{}

	err := row.Scan(
		&p.Seq,
		&p.ID,
		&p.UserID,
		&p.UserName,
		&p.UserEmail,
		&p.ProductID,
		&p.ProductName,
		&p.Category,
		&p.Color,
		&p.Quantity,
		&p.UnitPrice,
		&p.Total,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// CommitPurchase runs the conditional decrement and the purchase insert in
// one transaction. The decrement's WHERE clause is re-evaluated against the
// locked row, so concurrent purchases of the same product serialize on it
// and stock never goes negative.
func (s *Postgres) CommitPurchase(ctx context.Context, purchase *models.Purchase) (int, error) {
	var remaining int

	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT name, email FROM users WHERE id = $1 FOR SHARE`,
			purchase.UserID).Scan(&purchase.UserName, &purchase.UserEmail)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE products
			 SET stock_quantity = stock_quantity - $1,
			     version = version + 1,
			     updated_at = NOW()
			 WHERE id = $2
			   AND stock_quantity >= $1
			 RETURNING name, price, category, color, stock_quantity`,
			purchase.Quantity, purchase.ProductID,
		).Scan(&purchase.ProductName, &purchase.UnitPrice, &purchase.Category, &purchase.Color, &remaining)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("decrement stock: %w", err)
			}

			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`,
				purchase.ProductID).Scan(&exists); err != nil {
				return fmt.Errorf("check product exists: %w", err)
			}
			if !exists {
				return database.ErrProductNotFound
			}
			return database.ErrInsufficientStock
		}

		purchase.Total = models.CalculateTotal(purchase.UnitPrice, purchase.Quantity)

		err = tx.QueryRowContext(ctx,
			`INSERT INTO purchases (id, user_id, user_name, user_email, product_id, product_name,
			                        category, color, quantity, unit_price, total, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
			 RETURNING seq, created_at`,
			purchase.ID,
			purchase.UserID,
			purchase.UserName,
			purchase.UserEmail,
			purchase.ProductID,
			purchase.ProductName,
			purchase.Category,
			purchase.Color,
			purchase.Quantity,
			purchase.UnitPrice,
			purchase.Total,
		).Scan(&purchase.Seq, &purchase.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return remaining, nil
}

func (s *Postgres) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error) {
	var conds conditions
	if filter.UserID != "" {
		conds.add("user_id = ?", filter.UserID)
	}
	if filter.ProductID != "" {
		conds.add("product_id = ?", filter.ProductID)
	}
	if filter.From != nil {
		conds.add("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		conds.add("created_at <= ?", *filter.To)
	}
	if filter.After != nil {
		conds.add("(created_at, seq) < (?, ?)", filter.After.CreatedAt, filter.After.Seq)
	}

	query := `SELECT ` + purchaseColumns + ` FROM purchases` + conds.where()
	if filter.Newest {
		query += ` ORDER BY created_at DESC, seq DESC`
	} else {
		query += ` ORDER BY seq`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ` + conds.next(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, conds.args...)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []models.Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return purchases, nil
}
