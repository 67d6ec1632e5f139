package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/store-mcp/internal/database"
	"github.com/safar/store-mcp/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgres(db), mock
}

func TestPostgresCreateUser(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	age := 28

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("u1", "Ana", "ana@example.com", "", int64(28)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at", "version"}).AddRow(now, now, 1))

		user := &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Age: &age}
		err := s.CreateUser(context.Background(), user)

		require.NoError(t, err)
		assert.Equal(t, 1, user.Version)
		assert.Equal(t, now, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate email", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pq.Error{Code: "23505"})

		err := s.CreateUser(context.Background(), &models.User{ID: "u2", Name: "Ana", Email: "ana@example.com"})

		assert.ErrorIs(t, err, database.ErrDuplicateEmail)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresGetUserNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetUser(context.Background(), "ghost")

	assert.ErrorIs(t, err, database.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListProductsBuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	minPrice := decimal.RequireFromString("50")

	cols := []string{"id", "name", "description", "price", "category", "piece_type", "color", "size",
		"collection", "brand", "stock_quantity", "created_at", "updated_at", "version"}

	mock.ExpectQuery(`FROM products WHERE LOWER\(category\) = LOWER\(\$1\) AND price >= \$2 AND stock_quantity > 0 ORDER BY seq`).
		WithArgs("Festa", minPrice).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "Vestido Longo", "", "79.90", "Festa", "Vestido", "Preto", "M", "", "", 10, now, now, 1))

	products, err := s.ListProducts(context.Background(), ProductFilter{
		Category: "Festa",
		MinPrice: &minPrice,
		InStock:  true,
	})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Vestido Longo", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("79.90")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateProductVersionConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE products")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := s.UpdateProduct(context.Background(), &models.Product{ID: "p1", Name: "x", Version: 1})

	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteProduct(context.Background(), "ghost")

	assert.ErrorIs(t, err, database.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommitPurchase(t *testing.T) {
	now := time.Now().UTC()
	price := decimal.RequireFromString("79.90")
	total := decimal.RequireFromString("239.70")

	t.Run("Success", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name, email FROM users WHERE id = $1 FOR SHARE")).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}).AddRow("Ana", "ana@example.com"))
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE products")).
			WithArgs(3, "p1").
			WillReturnRows(sqlmock.NewRows([]string{"name", "price", "category", "color", "stock_quantity"}).
				AddRow("Vestido Longo", "79.90", "Festa", "Preto", 7))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO purchases")).
			WithArgs("o1", "u1", "Ana", "ana@example.com", "p1", "Vestido Longo", "Festa", "Preto", 3, price, total).
			WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at"}).AddRow(1, now))
		mock.ExpectCommit()

		purchase := &models.Purchase{ID: "o1", UserID: "u1", ProductID: "p1", Quantity: 3}
		remaining, err := s.CommitPurchase(context.Background(), purchase)

		require.NoError(t, err)
		assert.Equal(t, 7, remaining)
		assert.True(t, purchase.Total.Equal(total))
		assert.Equal(t, "Ana", purchase.UserName)
		assert.Equal(t, int64(1), purchase.Seq)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient stock", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name, email FROM users")).
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}).AddRow("Ana", "ana@example.com"))
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE products")).
			WithArgs(11, "p1").
			WillReturnRows(sqlmock.NewRows([]string{"name", "price", "category", "color", "stock_quantity"}))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)")).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := s.CommitPurchase(context.Background(), &models.Purchase{ID: "o2", UserID: "u1", ProductID: "p1", Quantity: 11})

		assert.ErrorIs(t, err, database.ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown product", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name, email FROM users")).
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}).AddRow("Ana", "ana@example.com"))
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE products")).
			WillReturnRows(sqlmock.NewRows([]string{"name", "price", "category", "color", "stock_quantity"}))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := s.CommitPurchase(context.Background(), &models.Purchase{ID: "o3", UserID: "u1", ProductID: "ghost", Quantity: 1})

		assert.ErrorIs(t, err, database.ErrProductNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown user", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name, email FROM users")).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}))
		mock.ExpectRollback()

		_, err := s.CommitPurchase(context.Background(), &models.Purchase{ID: "o4", UserID: "ghost", ProductID: "p1", Quantity: 1})

		assert.ErrorIs(t, err, database.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresListPurchasesNewestPage(t *testing.T) {
	s, mock := newMockStore(t)
	cursorTime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM purchases WHERE user_id = $1 AND (created_at, seq) < ($2, $3) ORDER BY created_at DESC, seq DESC LIMIT $4")).
		WithArgs("u1", cursorTime, int64(9), 6).
		WillReturnRows(sqlmock.NewRows([]string{"seq", "id", "user_id", "user_name", "user_email", "product_id",
			"product_name", "category", "color", "quantity", "unit_price", "total", "created_at"}).
			AddRow(8, "o8", "u1", "Ana", "ana@example.com", "p1", "Vestido", "Festa", "Preto", 1, "10.00", "10.00", cursorTime))

	purchases, err := s.ListPurchases(context.Background(), PurchaseFilter{
		UserID: "u1",
		Newest: true,
		After:  &PurchaseCursor{CreatedAt: cursorTime, Seq: 9},
		Limit:  6,
	})

	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, int64(8), purchases[0].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursorRoundTrip(t *testing.T) {
	c := PurchaseCursor{CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), Seq: 42}

	decoded, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, c.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, int64(42), decoded.Seq)

	empty, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestPurchasePage(t *testing.T) {
	items := []models.Purchase{{ID: "a", Seq: 3}, {ID: "b", Seq: 2}, {ID: "c", Seq: 1}}

	page := PurchasePage(items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.Len(t, page.Items, 2)

	last := PurchasePage(items[:1], 2)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)
}
