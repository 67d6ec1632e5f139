package purchase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func newTestStore() *store.Memory {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	return store.NewMemory(store.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return start.Add(time.Duration(tick) * time.Second)
	}))
}

func newTestService(st store.Store, opts ...Option) *Service {
	var mu sync.Mutex
	n := 0
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("purchase-%d", n)
	}
	return NewService(st, zap.NewNop(), append([]Option{WithIDGenerator(ids)}, opts...)...)
}

func seed(t *testing.T, st store.Store, price string, stock int) (*models.User, *models.Product) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, st.CreateUser(ctx, user))

	product := &models.Product{
		ID:            "p1",
		Name:          "Calça Jeans",
		Price:         decimal.RequireFromString(price),
		Category:      "Casual",
		Color:         "Azul",
		StockQuantity: stock,
	}
	require.NoError(t, st.CreateProduct(ctx, product))

	return user, product
}

func stockOf(t *testing.T, st store.Store, id string) int {
	t.Helper()
	p, err := st.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestRegisterPurchase(t *testing.T) {
	st := newTestStore()
	seed(t, st, "79.90", 10)
	inv := &countingInvalidator{}
	svc := newTestService(st, WithInvalidator(inv))

	receipt, err := svc.Register(context.Background(), models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, "purchase-1", receipt.ID)
	assert.Equal(t, "239.70", receipt.Total.StringFixed(2))
	assert.Equal(t, "79.90", receipt.UnitPrice.StringFixed(2))
	assert.Equal(t, "Ana", receipt.UserName)
	assert.Equal(t, "Calça Jeans", receipt.ProductName)
	assert.Equal(t, "Casual", receipt.Category)
	assert.Equal(t, 7, receipt.RemainingStock)
	assert.Equal(t, 7, stockOf(t, st, "p1"))
	assert.Equal(t, 1, inv.calls)

	_, err = svc.Register(context.Background(), models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 11})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInsufficientStock))
	assert.Equal(t, "Insufficient stock for product 'Calça Jeans': requested 11, available 7", err.Error())
	assert.Equal(t, 7, stockOf(t, st, "p1"))

	purchases, err := st.ListPurchases(context.Background(), store.PurchaseFilter{})
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestRegisterPurchaseKeepsPriceAtPurchaseTime(t *testing.T) {
	st := newTestStore()
	_, product := seed(t, st, "100.00", 5)
	svc := newTestService(st)
	ctx := context.Background()

	first, err := svc.Register(ctx, models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	current, err := st.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	current.Price = decimal.RequireFromString("120.00")
	require.NoError(t, st.UpdateProduct(ctx, current))

	second, err := svc.Register(ctx, models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	history, err := svc.History(ctx, HistoryQuery{})
	require.NoError(t, err)
	items := history.Items.([]models.Purchase)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, "120.00", items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, first.ID, items[1].ID)
	assert.Equal(t, "100.00", items[1].UnitPrice.StringFixed(2))
}

func TestRegisterPurchaseErrorOrdering(t *testing.T) {
	tests := []struct {
		name string
		req  models.PurchaseRequest
		code string
	}{
		{name: "missing user id", req: models.PurchaseRequest{ProductID: "p1", Quantity: 1}, code: appErrors.ErrCodeValidation},
		{name: "unknown user before bad quantity", req: models.PurchaseRequest{UserID: "nobody", ProductID: "p1", Quantity: 0}, code: appErrors.ErrCodeNotFound},
		{name: "unknown product before bad quantity", req: models.PurchaseRequest{UserID: "u1", ProductID: "nothing", Quantity: -1}, code: appErrors.ErrCodeNotFound},
		{name: "zero quantity", req: models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 0}, code: appErrors.ErrCodeValidation},
		{name: "negative quantity", req: models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: -2}, code: appErrors.ErrCodeValidation},
		{name: "more than stock", req: models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 3}, code: appErrors.ErrCodeInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore()
			seed(t, st, "10.00", 2)
			svc := newTestService(st)

			_, err := svc.Register(context.Background(), tt.req)

			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, 2, stockOf(t, st, "p1"))
		})
	}
}

func TestRegisterPurchaseStoreClosed(t *testing.T) {
	st := newTestStore()
	seed(t, st, "10.00", 2)
	svc := newTestService(st)
	require.NoError(t, st.Close())

	_, err := svc.Register(context.Background(), models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1})

	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeStoreUnavailable))
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	st := newTestStore()
	seed(t, st, "25.00", 10)
	svc := newTestService(st)

	const buyers = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if appErrors.HasCode(err, appErrors.ErrCodeInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, buyers-10, rejected)
	assert.Equal(t, 0, stockOf(t, st, "p1"))

	purchases, err := st.ListPurchases(context.Background(), store.PurchaseFilter{ProductID: "p1"})
	require.NoError(t, err)

	sold := 0
	for _, p := range purchases {
		sold += p.Quantity
	}
	assert.Equal(t, 10, sold)
}

func TestRegisterBatch(t *testing.T) {
	st := newTestStore()
	seed(t, st, "50.00", 10)
	svc := newTestService(st)

	results, err := svc.RegisterBatch(context.Background(), []models.PurchaseRequest{
		{UserID: "u1", ProductID: "p1", Quantity: 2},
		{UserID: "u1", ProductID: "p1", Quantity: 0},
		{UserID: "u1", ProductID: "p1", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NotNil(t, results[0].Purchase)
	assert.Nil(t, results[0].Error)
	assert.Equal(t, 8, results[0].Purchase.RemainingStock)

	assert.Nil(t, results[1].Purchase)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, appErrors.ErrCodeValidation, results[1].Error.Kind)
	assert.Equal(t, 1, results[1].Index)

	require.NotNil(t, results[2].Purchase)
	assert.Equal(t, 5, results[2].Purchase.RemainingStock)
	assert.Equal(t, 5, stockOf(t, st, "p1"))
}

func TestRegisterItemsKeepsGoingAfterMalformedItem(t *testing.T) {
	st := newTestStore()
	seed(t, st, "50.00", 10)
	svc := newTestService(st)

	results, err := svc.RegisterItems(context.Background(), []BatchItem{
		{Request: models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1}},
		{Err: appErrors.AddValidationError("quantity", "must be an integer")},
		{Request: models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Nil(t, results[0].Error)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, appErrors.ErrCodeValidation, results[1].Error.Kind)
	assert.Equal(t, "Invalid field 'quantity': must be an integer", results[1].Error.Message)
	assert.Nil(t, results[1].Purchase)
	require.NotNil(t, results[2].Purchase)
	assert.Equal(t, 8, results[2].Purchase.RemainingStock)
	assert.Equal(t, 8, stockOf(t, st, "p1"))
}

func TestRegisterBatchEmpty(t *testing.T) {
	svc := newTestService(newTestStore())

	_, err := svc.RegisterBatch(context.Background(), []models.PurchaseRequest{})

	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
}

func TestRegisterBatchCancelled(t *testing.T) {
	st := newTestStore()
	seed(t, st, "50.00", 10)
	svc := newTestService(st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.RegisterBatch(ctx, []models.PurchaseRequest{{UserID: "u1", ProductID: "p1", Quantity: 1}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Equal(t, 10, stockOf(t, st, "p1"))
}

func TestHistoryPaging(t *testing.T) {
	st := newTestStore()
	seed(t, st, "10.00", 100)
	require.NoError(t, st.CreateUser(context.Background(), &models.User{ID: "u2", Name: "Bruno", Email: "bruno@example.com"}))
	svc := newTestService(st)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Register(ctx, models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1})
		require.NoError(t, err)
	}
	_, err := svc.Register(ctx, models.PurchaseRequest{UserID: "u2", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	page, err := svc.History(ctx, HistoryQuery{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, []string{"purchase-5", "purchase-4"}, purchaseIDs(page))

	page, err = svc.History(ctx, HistoryQuery{UserID: "u1", Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"purchase-3", "purchase-2"}, purchaseIDs(page))

	page, err = svc.History(ctx, HistoryQuery{UserID: "u1", Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, []string{"purchase-1"}, purchaseIDs(page))

	page, err = svc.History(ctx, HistoryQuery{})
	require.NoError(t, err)
	assert.Len(t, purchaseIDs(page), 6)
	assert.Equal(t, "purchase-6", purchaseIDs(page)[0])
}

func TestHistoryValidation(t *testing.T) {
	svc := newTestService(newTestStore())
	ctx := context.Background()

	_, err := svc.History(ctx, HistoryQuery{Limit: MaxHistoryLimit + 1})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))

	_, err = svc.History(ctx, HistoryQuery{Cursor: "%%%"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))

	page, err := svc.History(ctx, HistoryQuery{UserID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, purchaseIDs(page))
}

func TestHistoryKeepsPurchasesOfDeletedUsers(t *testing.T) {
	st := newTestStore()
	seed(t, st, "10.00", 5)
	svc := newTestService(st)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, st.DeleteUser(ctx, "u1"))
	require.NoError(t, st.DeleteProduct(ctx, "p1"))

	page, err := svc.History(ctx, HistoryQuery{UserID: "u1"})
	require.NoError(t, err)
	items := page.Items.([]models.Purchase)
	require.Len(t, items, 1)
	assert.Equal(t, "Ana", items[0].UserName)
	assert.Equal(t, "Calça Jeans", items[0].ProductName)
}

func purchaseIDs(page *store.CursorPage) []string {
	items := page.Items.([]models.Purchase)
	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids
}
