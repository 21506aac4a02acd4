package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/auth"
	"github.com/honeynil/UdhaarLedger/internal/infrastructure/redis"
	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/honeynil/UdhaarLedger/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu    sync.Mutex
	data  map[string]string
	err   error
	onSet func(key string)
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	hook := f.onSet
	f.onSet = nil
	f.mu.Unlock()
	// Runs once, unlocked, so the hook may call back into the fake.
	if hook != nil {
		hook(key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = value.(string)
	return nil
}

func (f *fakeRedis) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.data, key)
	return nil
}

func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeRedis) Close() error { return nil }

func (f *fakeRedis) get(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key]
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

type published struct {
	ShopID  int64
	Event   string
	Payload json.RawMessage
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, shopID int64, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.events = append(p.events, published{ShopID: shopID, Event: event, Payload: raw})
	return nil
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

var errRedisDown = errors.New("redis: connection refused")

type fixture struct {
	store     *memory.Store
	redis     *fakeRedis
	publisher *recordingPublisher
	auth      *AuthService
	catalog   *CatalogService
	orders    *OrderService
	ledger    *LedgerService
	customer  *models.User
	owner     *models.User
	shop      *models.Shop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	redisClient := newFakeRedis()
	publisher := &recordingPublisher{}

	f := &fixture{
		store:     store,
		redis:     redisClient,
		publisher: publisher,
		auth:      NewAuthService(store.Users(), store.Shops(), redisClient, auth.NewTokenManager("secret", time.Hour)),
		catalog:   NewCatalogService(store.Shops(), store.Products()),
		orders:    NewOrderService(store.Users(), store.Shops(), store.Orders(), redisClient, publisher),
		ledger:    NewLedgerService(store.Users(), store.Orders(), store.Transactions(), redisClient),
	}

	ctx := context.Background()
	f.owner = &models.User{Username: "ravi", PasswordHash: "x", Name: "Ravi", Role: models.RoleShopkeeper}
	f.shop = &models.Shop{Name: "Ravi Kirana"}
	require.NoError(t, store.Users().Create(ctx, f.owner, f.shop))

	f.customer = &models.User{Username: "asha", PasswordHash: "x", Name: "Asha", Role: models.RoleCustomer}
	require.NoError(t, store.Users().Create(ctx, f.customer, nil))
	return f
}

func (f *fixture) placeOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.orders.PlaceOrder(context.Background(), f.customer.ID, f.shop.ID, []models.LineItem{
		{Name: "Rice", UnitPrice: dec("40"), Quantity: 2},
		{Name: "Milk", UnitPrice: dec("20"), Quantity: 1},
	})
	require.NoError(t, err)
	return order
}

// advance walks the order through the given statuses.
func (f *fixture) advance(t *testing.T, orderID int64, statuses ...models.OrderStatus) {
	t.Helper()
	for _, status := range statuses {
		_, err := f.orders.SetStatus(context.Background(), orderID, status)
		require.NoError(t, err)
	}
}
