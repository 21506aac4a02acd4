package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/honeynil/UdhaarLedger/internal/models"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const transactionTracer = "transaction-repository"

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, done := observe(ctx, transactionTracer, "CreateTransaction")
	defer done(&err)

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return err
	}

	if !tx.Type.Valid() {
		err = pkgerrors.ErrInvalidTxType
		slog.Error("invalid transaction type", "method", "Create", "type", tx.Type, "error", err)
		return err
	}

	if tx.Amount.IsZero() {
		err = pkgerrors.ErrInvalidAmount
		slog.Error("amount must not be zero", "method", "Create", "error", err)
		return err
	}

	query := `INSERT INTO transactions (customer_id, shop_id, order_id, amount, type, description) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, tx.CustomerID, tx.ShopID, tx.OrderID, tx.Amount, tx.Type, tx.Description).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		switch code, constraint := pqCode(err); {
		case code == pqForeignKeyViolation && strings.Contains(constraint, "customer"):
			err = pkgerrors.ErrUserNotFound
			return err
		case code == pqForeignKeyViolation:
			err = pkgerrors.ErrShopNotFound
			return err
		case code == pqUniqueViolation:
			err = pkgerrors.ErrOrderAlreadyBilled
			return err
		}
		slog.Error("failed to create transaction", "method", "Create", "customer_id", tx.CustomerID, "type", tx.Type, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Info("transaction created", "method", "Create", "id", tx.ID, "customer_id", tx.CustomerID, "shop_id", tx.ShopID, "type", tx.Type)
	return nil
}

func (r *PostgresTransactionRepository) GetBalance(ctx context.Context, customerID int64) (balance decimal.Decimal, err error) {
	ctx, done := observe(ctx, transactionTracer, "GetBalance", attribute.Int64("customer_id", customerID))
	defer done(&err)

	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE customer_id = $1`
	err = r.db.QueryRowContext(ctx, query, customerID).Scan(&balance)
	if err != nil {
		slog.Error("failed to get balance", "method", "GetBalance", "customer_id", customerID, "error", err)
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresTransactionRepository) ListRecent(ctx context.Context, customerID int64, limit int) (history []models.Transaction, err error) {
	ctx, done := observe(ctx, transactionTracer, "ListRecentTransactions", attribute.Int64("customer_id", customerID))
	defer done(&err)

	query := `
		SELECT t.id, t.customer_id, t.shop_id, t.order_id, t.amount, t.type, t.description, t.created_at, s.shop_name
		FROM transactions t
		JOIN shops s ON s.id = t.shop_id
		WHERE t.customer_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, customerID, limit)
	if err != nil {
		slog.Error("failed to list transactions", "method", "ListRecent", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	history = make([]models.Transaction, 0, limit)
	for rows.Next() {
		var (
			tx      models.Transaction
			orderID sql.NullInt64
		)
		if err = rows.Scan(&tx.ID, &tx.CustomerID, &tx.ShopID, &orderID, &tx.Amount, &tx.Type, &tx.Description, &tx.CreatedAt, &tx.ShopName); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if orderID.Valid {
			id := orderID.Int64
			tx.OrderID = &id
		}
		history = append(history, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return history, nil
}

func (r *PostgresTransactionRepository) ListShopBalances(ctx context.Context, shopID int64) (balances []models.CustomerBalance, err error) {
	ctx, done := observe(ctx, transactionTracer, "ListShopBalances", attribute.Int64("shop_id", shopID))
	defer done(&err)

	query := `
		SELECT u.id, u.name, COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN users u ON u.id = t.customer_id
		WHERE t.shop_id = $1
		GROUP BY u.id, u.name
		ORDER BY u.name, u.id`
	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		slog.Error("failed to list shop balances", "method", "ListShopBalances", "shop_id", shopID, "error", err)
		return nil, fmt.Errorf("failed to list shop balances: %w", err)
	}
	defer rows.Close()

	balances = make([]models.CustomerBalance, 0)
	for rows.Next() {
		var b models.CustomerBalance
		if err = rows.Scan(&b.CustomerID, &b.CustomerName, &b.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	return balances, nil
}
