// Package memory is an in-process ledger store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/honeynil/UdhaarLedger/internal/repository"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/shopspring/decimal"
)

// Store keeps every table behind one lock, which also gives UpdateStatus
// its per-order atomicity.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[int64]models.User
	usernames    map[string]int64
	shops        map[int64]models.Shop
	shopByOwner  map[int64]int64
	products     map[int64]models.Product
	orders       map[int64]models.Order
	transactions []models.Transaction
	billed       map[int64]int64
}

func New() *Store {
	return &Store{
		users:       map[int64]models.User{},
		usernames:   map[string]int64{},
		shops:       map[int64]models.Shop{},
		shopByOwner: map[int64]int64{},
		products:    map[int64]models.Product{},
		orders:      map[int64]models.Order{},
		billed:      map[int64]int64{},
	}
}

func (s *Store) Users() *UserRepository               { return &UserRepository{s} }
func (s *Store) Shops() *ShopRepository               { return &ShopRepository{s} }
func (s *Store) Products() *ProductRepository         { return &ProductRepository{s} }
func (s *Store) Orders() *OrderRepository             { return &OrderRepository{s} }
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func cloneOrder(o models.Order) models.Order {
	items := make([]models.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// decorate fills the read-side names; caller holds the lock.
func (s *Store) decorate(o models.Order) models.Order {
	o = cloneOrder(o)
	o.CustomerName = s.users[o.CustomerID].Name
	o.ShopName = s.shops[o.ShopID].Name
	return o
}

func sortNewestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *models.User, shop *models.Shop) error {
	if user == nil {
		return pkgerrors.ErrNilUser
	}
	if user.Username == "" || user.PasswordHash == "" {
		return pkgerrors.Validationf("username and password are required")
	}
	if !user.Role.Valid() {
		return pkgerrors.ErrInvalidRole
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usernames[user.Username]; exists {
		return pkgerrors.ErrUsernameExists
	}
	user.ID = s.id()
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	s.usernames[user.Username] = user.ID

	if shop != nil {
		shop.ID = s.id()
		shop.OwnerID = user.ID
		shop.OwnerName = user.Name
		s.shops[shop.ID] = *shop
		s.shopByOwner[user.ID] = shop.ID
	}
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, pkgerrors.Validationf("username cannot be empty")
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[username]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	user := r.s.users[id]
	return &user, nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, id int64, update models.ProfileUpdate) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	update.Apply(&user)
	r.s.users[id] = user
	return &user, nil
}

type ShopRepository struct{ s *Store }

func (r *ShopRepository) List(_ context.Context) ([]models.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shops := make([]models.Shop, 0, len(r.s.shops))
	for _, shop := range r.s.shops {
		shop.OwnerName = r.s.users[shop.OwnerID].Name
		shops = append(shops, shop)
	}
	sort.Slice(shops, func(i, j int) bool {
		if shops[i].Name != shops[j].Name {
			return shops[i].Name < shops[j].Name
		}
		return shops[i].ID < shops[j].ID
	})
	return shops, nil
}

func (r *ShopRepository) GetByID(_ context.Context, id int64) (*models.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shop, ok := r.s.shops[id]
	if !ok {
		return nil, pkgerrors.ErrShopNotFound
	}
	shop.OwnerName = r.s.users[shop.OwnerID].Name
	return &shop, nil
}

func (r *ShopRepository) GetByOwner(ctx context.Context, ownerID int64) (*models.Shop, error) {
	r.s.mu.RLock()
	id, ok := r.s.shopByOwner[ownerID]
	r.s.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.ErrShopNotFound
	}
	return r.GetByID(ctx, id)
}

type ProductRepository struct{ s *Store }

func (r *ProductRepository) Create(_ context.Context, product *models.Product) error {
	if product == nil {
		return pkgerrors.ErrNilProduct
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shops[product.ShopID]; !ok {
		return pkgerrors.ErrShopNotFound
	}
	product.ID = r.s.id()
	r.s.products[product.ID] = *product
	return nil
}

func (r *ProductRepository) ListByShop(_ context.Context, shopID int64) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	products := make([]models.Product, 0)
	for _, p := range r.s.products {
		if p.ShopID == shopID {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

type OrderRepository struct{ s *Store }

func (r *OrderRepository) Create(_ context.Context, order *models.Order) error {
	if order == nil {
		return pkgerrors.ErrNilOrder
	}
	if len(order.Items) == 0 {
		return pkgerrors.ErrEmptyOrder
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[order.CustomerID]; !ok {
		return pkgerrors.ErrUserNotFound
	}
	if _, ok := s.shops[order.ShopID]; !ok {
		return pkgerrors.ErrShopNotFound
	}
	order.ID = s.id()
	order.CreatedAt = time.Now().UTC()
	s.orders[order.ID] = cloneOrder(*order)
	order.CustomerName = s.users[order.CustomerID].Name
	order.ShopName = s.shops[order.ShopID].Name
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return nil, pkgerrors.ErrOrderNotFound
	}
	order = r.s.decorate(order)
	return &order, nil
}

func (r *OrderRepository) ListByShop(_ context.Context, shopID int64) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.ShopID == shopID }), nil
}

func (r *OrderRepository) ListActiveByCustomer(_ context.Context, customerID int64) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool {
		return o.CustomerID == customerID && o.Status.Active()
	}), nil
}

func (r *OrderRepository) filter(keep func(models.Order) bool) []models.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orders := make([]models.Order, 0)
	for _, o := range r.s.orders {
		if keep(o) {
			orders = append(orders, r.s.decorate(o))
		}
	}
	sortNewestFirst(orders)
	return orders
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id int64, status models.OrderStatus, change repository.StatusChange) (*models.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[id]
	if !ok {
		return nil, pkgerrors.ErrOrderNotFound
	}
	entry, err := change(s.decorate(stored))
	if err != nil {
		return nil, err
	}
	if entry != nil {
		if entry.OrderID != nil {
			if _, dup := s.billed[*entry.OrderID]; dup {
				return nil, pkgerrors.ErrOrderAlreadyBilled
			}
		}
		entry.ID = s.id()
		entry.CreatedAt = time.Now().UTC()
		s.transactions = append(s.transactions, *entry)
		if entry.OrderID != nil {
			s.billed[*entry.OrderID] = entry.ID
		}
	}
	stored.Status = status
	s.orders[id] = stored

	updated := s.decorate(stored)
	return &updated, nil
}

type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) Create(_ context.Context, tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	if !tx.Type.Valid() {
		return pkgerrors.ErrInvalidTxType
	}
	if tx.Amount.IsZero() {
		return pkgerrors.ErrInvalidAmount
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[tx.CustomerID]; !ok {
		return pkgerrors.ErrUserNotFound
	}
	if _, ok := s.shops[tx.ShopID]; !ok {
		return pkgerrors.ErrShopNotFound
	}
	if tx.OrderID != nil {
		if _, dup := s.billed[*tx.OrderID]; dup {
			return pkgerrors.ErrOrderAlreadyBilled
		}
	}
	tx.ID = s.id()
	tx.CreatedAt = time.Now().UTC()
	s.transactions = append(s.transactions, *tx)
	if tx.OrderID != nil {
		s.billed[*tx.OrderID] = tx.ID
	}
	return nil
}

func (r *TransactionRepository) GetBalance(_ context.Context, customerID int64) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	balance := decimal.Zero
	for _, tx := range r.s.transactions {
		if tx.CustomerID == customerID {
			balance = balance.Add(tx.Amount)
		}
	}
	return balance, nil
}

func (r *TransactionRepository) ListRecent(_ context.Context, customerID int64, limit int) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	history := make([]models.Transaction, 0)
	// transactions is append-only, so walking backwards yields newest first.
	for i := len(r.s.transactions) - 1; i >= 0 && len(history) < limit; i-- {
		tx := r.s.transactions[i]
		if tx.CustomerID == customerID {
			tx.ShopName = r.s.shops[tx.ShopID].Name
			history = append(history, tx)
		}
	}
	return history, nil
}

func (r *TransactionRepository) ListShopBalances(_ context.Context, shopID int64) ([]models.CustomerBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := map[int64]decimal.Decimal{}
	for _, tx := range r.s.transactions {
		if tx.ShopID == shopID {
			totals[tx.CustomerID] = totals[tx.CustomerID].Add(tx.Amount)
		}
	}
	balances := make([]models.CustomerBalance, 0, len(totals))
	for customerID, total := range totals {
		balances = append(balances, models.CustomerBalance{
			CustomerID:   customerID,
			CustomerName: r.s.users[customerID].Name,
			Balance:      total,
		})
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].CustomerName != balances[j].CustomerName {
			return balances[i].CustomerName < balances[j].CustomerName
		}
		return balances[i].CustomerID < balances[j].CustomerID
	})
	return balances, nil
}

var (
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.ShopRepository        = (*ShopRepository)(nil)
	_ repository.ProductRepository     = (*ProductRepository)(nil)
	_ repository.OrderRepository       = (*OrderRepository)(nil)
	_ repository.TransactionRepository = (*TransactionRepository)(nil)
)
