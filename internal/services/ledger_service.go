package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	stderrors "errors"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/redis"
	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/honeynil/UdhaarLedger/internal/repository"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ledgerTracer       = "ledger-service"
	defaultPaymentNote = "Payment received"
)

type LedgerService struct {
	users        repository.UserRepository
	orders       repository.OrderRepository
	transactions repository.TransactionRepository
	redisClient  redis.RedisClient
}

func NewLedgerService(
	users repository.UserRepository,
	orders repository.OrderRepository,
	transactions repository.TransactionRepository,
	redisClient redis.RedisClient,
) *LedgerService {
	return &LedgerService{
		users:        users,
		orders:       orders,
		transactions: transactions,
		redisClient:  redisClient,
	}
}

// GetBalance sums every ledger entry of the customer. Purchases add,
// payments subtract; no entries means zero.
func (s *LedgerService) GetBalance(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	ctx, span := startSpan(ctx, ledgerTracer, "GetBalance")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer_id", customerID))

	// The generation must be read before the sum.
	version, err := s.redisClient.Get(ctx, redis.BalanceVersionKey(customerID))
	switch {
	case stderrors.Is(err, redis.ErrKeyNotFound):
		version = "0"
	case err != nil:
		slog.Warn("balance cache unavailable", "customer_id", customerID, "error", err)
		balance, err := s.transactions.GetBalance(ctx, customerID)
		if err != nil {
			spanError(span, err, "balance query failed")
			return decimal.Zero, err
		}
		return balance, nil
	}

	key := redis.BalanceKey(customerID, version)
	cached, err := s.redisClient.Get(ctx, key)
	switch {
	case err == nil:
		if balance, perr := decimal.NewFromString(cached); perr == nil {
			return balance, nil
		}
		slog.Warn("discarding malformed cached balance", "customer_id", customerID, "value", cached)
	case !stderrors.Is(err, redis.ErrKeyNotFound):
		slog.Warn("balance cache unavailable", "customer_id", customerID, "error", err)
	}

	balance, err := s.transactions.GetBalance(ctx, customerID)
	if err != nil {
		spanError(span, err, "balance query failed")
		return decimal.Zero, err
	}

	if err := s.redisClient.Set(ctx, key, balance.String(), balanceCacheTTL); err != nil {
		slog.Warn("failed to cache balance", "customer_id", customerID, "error", err)
	}
	return balance, nil
}

func (s *LedgerService) GetCustomerSnapshot(ctx context.Context, customerID int64) (*models.CustomerSnapshot, error) {
	ctx, span := startSpan(ctx, ledgerTracer, "GetCustomerSnapshot")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer_id", customerID))

	if _, err := s.users.GetByID(ctx, customerID); err != nil {
		spanError(span, err, "customer lookup failed")
		return nil, err
	}

	balance, err := s.GetBalance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	active, err := s.orders.ListActiveByCustomer(ctx, customerID)
	if err != nil {
		spanError(span, err, "active orders query failed")
		return nil, err
	}
	history, err := s.transactions.ListRecent(ctx, customerID, recentHistorySize)
	if err != nil {
		spanError(span, err, "history query failed")
		return nil, err
	}

	if active == nil {
		active = []models.Order{}
	}
	if history == nil {
		history = []models.Transaction{}
	}
	return &models.CustomerSnapshot{
		Balance:       balance,
		ActiveOrders:  active,
		RecentHistory: history,
	}, nil
}

// RecordPayment credits the customer's udhaar at the shop. The ledger stores
// payments as negative amounts.
func (s *LedgerService) RecordPayment(ctx context.Context, customerID, shopID int64, amount decimal.Decimal, note string) (*models.Transaction, error) {
	ctx, span := startSpan(ctx, ledgerTracer, "RecordPayment")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer_id", customerID), attribute.Int64("shop_id", shopID))

	if !amount.IsPositive() {
		span.SetStatus(codes.Error, "non-positive amount")
		return nil, pkgerrors.ErrInvalidAmount
	}
	if !models.ValidMoneyScale(amount) {
		span.SetStatus(codes.Error, "amount scale")
		return nil, pkgerrors.Validationf("amount has more than %d decimal places", models.MoneyScale)
	}

	customer, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		spanError(span, err, "customer lookup failed")
		return nil, err
	}
	if customer.Role != models.RoleCustomer {
		span.SetStatus(codes.Error, "not a customer")
		return nil, pkgerrors.Validationf("user %d is not a customer", customerID)
	}

	note = strings.TrimSpace(note)
	if note == "" {
		note = defaultPaymentNote
	}
	tx := &models.Transaction{
		CustomerID:  customerID,
		ShopID:      shopID,
		Amount:      amount.Neg(),
		Type:        models.TypePayment,
		Description: note,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		spanError(span, err, "payment creation failed")
		slog.Error("failed to record payment", "customer_id", customerID, "shop_id", shopID, "error", err)
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	invalidateBalance(ctx, s.redisClient, customerID)
	slog.Info("payment recorded", "transaction_id", tx.ID, "customer_id", customerID, "shop_id", shopID, "amount", amount.String())
	return tx, nil
}

// ShopCustomerBalances lists what each customer owes the shop.
func (s *LedgerService) ShopCustomerBalances(ctx context.Context, shopID int64) ([]models.CustomerBalance, error) {
	ctx, span := startSpan(ctx, ledgerTracer, "ShopCustomerBalances")
	defer span.End()

	balances, err := s.transactions.ListShopBalances(ctx, shopID)
	if err != nil {
		spanError(span, err, "shop balances query failed")
		return nil, err
	}
	return balances, nil
}
