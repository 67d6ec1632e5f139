package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/safar/store-mcp/internal/database"
	"github.com/safar/store-mcp/internal/models"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. A single lock guards all collections, so a
// purchase commit is atomic with respect to every reader.
type Memory struct {
	mu     sync.RWMutex
	now    func() time.Time
	closed bool
	seq    int64

	users     map[string]*userRecord
	products  map[string]*productRecord
	purchases []models.Purchase
}

type userRecord struct {
	seq  int64
	user models.User
}

type productRecord struct {
	seq     int64
	product models.Product
}

type MemoryOption func(*Memory)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:      time.Now,
		users:    make(map[string]*userRecord),
		products: make(map[string]*productRecord),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return database.ErrStoreClosed
	}
	return ctx.Err()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) nextSeq() int64 {
	m.seq++
	return m.seq
}

func (m *Memory) timestamp() time.Time {
	return m.now().UTC()
}

// ready must be called with the lock held.
func (m *Memory) ready(ctx context.Context) error {
	if m.closed {
		return database.ErrStoreClosed
	}
	return ctx.Err()
}

func copyUser(u models.User) models.User {
	if u.Age != nil {
		age := *u.Age
		u.Age = &age
	}
	return u
}

func (m *Memory) emailTaken(email, exceptID string) bool {
	for id, rec := range m.users {
		if id != exceptID && strings.EqualFold(rec.user.Email, email) {
			return true
		}
	}
	return false
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return err
	}

	if m.emailTaken(user.Email, "") {
		return database.ErrDuplicateEmail
	}

	now := m.timestamp()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1

	m.users[user.ID] = &userRecord{seq: m.nextSeq(), user: copyUser(*user)}
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	rec, ok := m.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	user := copyUser(rec.user)
	return &user, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	for _, rec := range m.users {
		if strings.EqualFold(rec.user.Email, email) {
			user := copyUser(rec.user)
			return &user, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (m *Memory) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	records := make([]*userRecord, 0, len(m.users))
	for _, rec := range m.users {
		if filter.Match(&rec.user) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	users := make([]models.User, 0, len(records))
	for _, rec := range records {
		users = append(users, copyUser(rec.user))
	}
	return users, nil
}

func (m *Memory) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return err
	}

	rec, ok := m.users[user.ID]
	if !ok {
		return database.ErrUserNotFound
	}
	if rec.user.Version != user.Version {
		return database.ErrOptimisticLockFailed
	}
	if m.emailTaken(user.Email, user.ID) {
		return database.ErrDuplicateEmail
	}

	user.CreatedAt = rec.user.CreatedAt
	user.UpdatedAt = m.timestamp()
	user.Version = rec.user.Version + 1
	rec.user = copyUser(*user)
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return err
	}

	if _, ok := m.users[id]; !ok {
		return database.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return err
	}

	now := m.timestamp()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1

	m.products[product.ID] = &productRecord{seq: m.nextSeq(), product: *product}
	return nil
}

func (m *Memory) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	rec, ok := m.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	product := rec.product
	return &product, nil
}

func (m *Memory) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	records := make([]*productRecord, 0, len(m.products))
	for _, rec := range m.products {
		if filter.Match(&rec.product) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, rec.product)
	}
	return products, nil
}

func (m *Memory) UpdateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return err
	}

	rec, ok := m.products[product.ID]
	if !ok {
		return database.ErrProductNotFound
	}
	if rec.product.Version != product.Version {
		return database.ErrOptimisticLockFailed
	}

	product.CreatedAt = rec.product.CreatedAt
	product.UpdatedAt = m.timestamp()
	product.Version = rec.product.Version + 1
	rec.product = *product
	return nil
}

func (m *Memory) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return err
	}

	if _, ok := m.products[id]; !ok {
		return database.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *Memory) CommitPurchase(ctx context.Context, purchase *models.Purchase) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return 0, err
	}

	userRec, ok := m.users[purchase.UserID]
	if !ok {
		return 0, database.ErrUserNotFound
	}
	productRec, ok := m.products[purchase.ProductID]
	if !ok {
		return 0, database.ErrProductNotFound
	}
	product := &productRec.product
	if product.StockQuantity < purchase.Quantity {
		return 0, database.ErrInsufficientStock
	}

	now := m.timestamp()
	product.StockQuantity -= purchase.Quantity
	product.Version++
	product.UpdatedAt = now

	purchase.UserName = userRec.user.Name
	purchase.UserEmail = userRec.user.Email
	purchase.ProductName = product.Name
	purchase.Category = product.Category
	purchase.Color = product.Color
	purchase.UnitPrice = product.Price
	purchase.Total = models.CalculateTotal(product.Price, purchase.Quantity)
	purchase.CreatedAt = now
	purchase.Seq = m.nextSeq()

	m.purchases = append(m.purchases, *purchase)
	return product.StockQuantity, nil
}

func (m *Memory) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	purchases := []models.Purchase{}
	for i := range m.purchases {
		if filter.Match(&m.purchases[i]) {
			purchases = append(purchases, m.purchases[i])
		}
	}

	if filter.Newest {
		sort.SliceStable(purchases, func(i, j int) bool {
			if purchases[i].CreatedAt.Equal(purchases[j].CreatedAt) {
				return purchases[i].Seq > purchases[j].Seq
			}
			return purchases[i].CreatedAt.After(purchases[j].CreatedAt)
		})
	}

	if filter.Limit > 0 && len(purchases) > filter.Limit {
		purchases = purchases[:filter.Limit]
	}
	return purchases, nil
}
