package recommend

import (
	"context"
	"testing"

	"github.com/safar/store-mcp/internal/config"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testConfig = config.RecommendationConfig{
	CategoryWeight: 3.0,
	PriceWeight:    1.0,
	StockBonus:     0.5,
	DefaultLimit:   10,
	MaxLimit:       100,
}

func addProduct(t *testing.T, st store.Store, id, category, price string, stock int) {
	t.Helper()
	require.NoError(t, st.CreateProduct(context.Background(), &models.Product{
		ID:            id,
		Name:          "Product " + id,
		Category:      category,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}))
}

func buy(t *testing.T, st store.Store, id, userID, productID string, qty int) {
	t.Helper()
	_, err := st.CommitPurchase(context.Background(), &models.Purchase{
		ID: id, UserID: userID, ProductID: productID, Quantity: qty,
	})
	require.NoError(t, err)
}

// seedCatalog builds a store where u1 bought 3 Casual units at 100.00 and
// one Formal unit at 200.00, and u2 bought nothing.
func seedCatalog(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}))
	require.NoError(t, st.CreateUser(ctx, &models.User{ID: "u2", Name: "Bruno", Email: "bruno@example.com"}))

	addProduct(t, st, "p1", "Casual", "100.00", 10)
	addProduct(t, st, "p2", "Formal", "200.00", 10)
	addProduct(t, st, "c1", "Casual", "150.00", 5)
	addProduct(t, st, "c2", "Formal", "150.00", 5)
	addProduct(t, st, "c3", "Praia", "120.00", 5)
	addProduct(t, st, "c4", "Casual", "150.00", 0)
	addProduct(t, st, "c5", "casual", "150.00", 9)
	addProduct(t, st, "c6", "Casual", "150.00", 9)

	buy(t, st, "b1", "u1", "p1", 3)
	buy(t, st, "b2", "u1", "p2", 1)

	return st
}

func ids(result *Result) []string {
	out := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		out = append(out, item.Product.ID)
	}
	return out
}

func TestRecommendPersonalized(t *testing.T) {
	engine := NewEngine(seedCatalog(t), testConfig, zap.NewNop())

	result, err := engine.Recommend(context.Background(), "u1", engine.DefaultLimit())
	require.NoError(t, err)

	assert.Equal(t, StrategyPersonalized, result.Strategy)
	assert.Equal(t, "u1", result.UserID)
	// c5 and c6 tie with c1 on score and win on stock; c5 < c6 by id.
	assert.Equal(t, []string{"c5", "c6", "c1", "c2", "c3"}, ids(result))

	assert.InDelta(t, 3.75, result.Items[0].Score, 1e-9)
	assert.InDelta(t, 2.25, result.Items[3].Score, 1e-9)
	assert.InDelta(t, 0.5+1/1.2, result.Items[4].Score, 1e-9)
}

func TestRecommendNeverReturnsPurchasedOrOutOfStock(t *testing.T) {
	engine := NewEngine(seedCatalog(t), testConfig, zap.NewNop())

	result, err := engine.Recommend(context.Background(), "u1", 100)
	require.NoError(t, err)

	for _, item := range result.Items {
		assert.NotEqual(t, "p1", item.Product.ID)
		assert.NotEqual(t, "p2", item.Product.ID)
		assert.Greater(t, item.Product.StockQuantity, 0)
	}
}

func TestRecommendIsDeterministic(t *testing.T) {
	engine := NewEngine(seedCatalog(t), testConfig, zap.NewNop())
	ctx := context.Background()

	first, err := engine.Recommend(ctx, "u1", 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Recommend(ctx, "u1", 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Len(t, first.Items, 3)
}

func TestRecommendColdStartUsesPopularity(t *testing.T) {
	engine := NewEngine(seedCatalog(t), testConfig, zap.NewNop())

	result, err := engine.Recommend(context.Background(), "u2", engine.DefaultLimit())
	require.NoError(t, err)

	assert.Equal(t, StrategyPopularity, result.Strategy)
	// sold units first, then cheapest, then id
	assert.Equal(t, []string{"p1", "p2", "c3", "c1", "c2", "c5", "c6"}, ids(result))
	assert.Equal(t, float64(3), result.Items[0].Score)
}

func TestRecommendColdStartEmptyStore(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.CreateUser(context.Background(), &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}))
	engine := NewEngine(st, testConfig, zap.NewNop())

	result, err := engine.Recommend(context.Background(), "u1", 5)
	require.NoError(t, err)

	assert.Equal(t, StrategyPopularity, result.Strategy)
	assert.Empty(t, result.Items)
}

func TestRecommendProfileSurvivesProductDeletion(t *testing.T) {
	st := seedCatalog(t)
	require.NoError(t, st.DeleteProduct(context.Background(), "p1"))
	engine := NewEngine(st, testConfig, zap.NewNop())

	result, err := engine.Recommend(context.Background(), "u1", 1)
	require.NoError(t, err)

	assert.Equal(t, StrategyPersonalized, result.Strategy)
	assert.Equal(t, []string{"c5"}, ids(result))
}

func TestRecommendErrors(t *testing.T) {
	engine := NewEngine(seedCatalog(t), testConfig, zap.NewNop())
	ctx := context.Background()

	_, err := engine.Recommend(ctx, "ghost", 5)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))

	_, err = engine.Recommend(ctx, "", 5)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))

	_, err = engine.Recommend(ctx, "u1", 101)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))

	_, err = engine.Recommend(ctx, "u1", -1)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))

	_, err = engine.Recommend(ctx, "u1", 0)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
	assert.Equal(t, "Invalid field 'limit': must be between 1 and 100", err.Error())
}

func TestScoreWithZeroAveragePrice(t *testing.T) {
	engine := NewEngine(store.NewMemory(), testConfig, zap.NewNop())
	prof := buildProfile([]models.Purchase{
		{ProductID: "free", Category: "Brinde", Quantity: 2, UnitPrice: decimal.Zero},
	})

	score := engine.score(prof, &models.Product{Category: "Outro", Price: decimal.NewFromInt(1)})

	// distance falls back to the raw price: 1/(1+1)
	assert.InDelta(t, 0.5+0.5, score, 1e-9)
}
