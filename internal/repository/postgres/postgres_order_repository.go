package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/honeynil/UdhaarLedger/internal/models"
	ports "github.com/honeynil/UdhaarLedger/internal/repository"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	orderTracer  = "order-repository"
	orderColumns = `o.id, o.customer_id, o.shop_id, o.items, o.total_amount, o.status, o.created_at, u.name, s.shop_name`
	orderFrom    = ` FROM orders o JOIN users u ON u.id = o.customer_id JOIN shops s ON s.id = o.shop_id`
)

type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var (
		order models.Order
		items []byte
	)
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.ShopID,
		&items,
		&order.TotalAmount,
		&order.Status,
		&order.CreatedAt,
		&order.CustomerName,
		&order.ShopName,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	return &order, nil
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) (err error) {
	ctx, done := observe(ctx, orderTracer, "CreateOrder")
	defer done(&err)

	if order == nil {
		err = pkgerrors.ErrNilOrder
		return err
	}
	if len(order.Items) == 0 {
		err = pkgerrors.ErrEmptyOrder
		return err
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	query := `INSERT INTO orders (customer_id, shop_id, items, total_amount, status) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, order.CustomerID, order.ShopID, items, order.TotalAmount, order.Status).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if code, constraint := pqCode(err); code == pqForeignKeyViolation {
			if strings.Contains(constraint, "customer") {
				err = pkgerrors.ErrUserNotFound
			} else {
				err = pkgerrors.ErrShopNotFound
			}
			return err
		}
		slog.Error("failed to create order", "method", "Create", "customer_id", order.CustomerID, "shop_id", order.ShopID, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	slog.Info("order created", "method", "Create", "order_id", order.ID, "shop_id", order.ShopID, "total", order.TotalAmount.String())
	return nil
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (order *models.Order, err error) {
	ctx, done := observe(ctx, orderTracer, "GetOrderByID", attribute.Int64("order_id", id))
	defer done(&err)

	order, err = scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrOrderNotFound
	}
	if err != nil {
		slog.Error("failed to get order", "method", "GetByID", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *PostgresOrderRepository) ListByShop(ctx context.Context, shopID int64) (orders []models.Order, err error) {
	ctx, done := observe(ctx, orderTracer, "ListShopOrders", attribute.Int64("shop_id", shopID))
	defer done(&err)

	return r.list(ctx, `WHERE o.shop_id = $1`, shopID)
}

func (r *PostgresOrderRepository) ListActiveByCustomer(ctx context.Context, customerID int64) (orders []models.Order, err error) {
	ctx, done := observe(ctx, orderTracer, "ListActiveOrders", attribute.Int64("customer_id", customerID))
	defer done(&err)

	return r.list(ctx, `WHERE o.customer_id = $1 AND o.status IN ('pending', 'accepted', 'out-for-delivery')`, customerID)
}

func (r *PostgresOrderRepository) list(ctx context.Context, where string, arg int64) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+orderFrom+` `+where+` ORDER BY o.created_at DESC, o.id DESC`, arg)
	if err != nil {
		slog.Error("failed to list orders", "method", "list", "arg", arg, "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus locks the order row, lets change decide on the transition and
// writes the resulting ledger entry and the new status in one transaction.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, change ports.StatusChange) (order *models.Order, err error) {
	ctx, done := observe(ctx, orderTracer, "UpdateOrderStatus",
		attribute.Int64("order_id", id),
		attribute.String("status", string(status)),
	)
	defer done(&err)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "UpdateStatus", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(dbTx)

	order, err = scanOrder(dbTx.QueryRowContext(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrOrderNotFound
	}
	if err != nil {
		slog.Error("failed to lock order", "method", "UpdateStatus", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	previous := order.Status

	entry, err := change(*order)
	if err != nil {
		return nil, err
	}

	if entry != nil {
		query := `INSERT INTO transactions (customer_id, shop_id, order_id, amount, type, description) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
		err = dbTx.QueryRowContext(ctx, query, entry.CustomerID, entry.ShopID, entry.OrderID, entry.Amount, entry.Type, entry.Description).
			Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			if code, _ := pqCode(err); code == pqUniqueViolation {
				err = pkgerrors.ErrOrderAlreadyBilled
				return nil, err
			}
			slog.Error("failed to create transaction", "method", "UpdateStatus", "order_id", id, "error", err)
			return nil, fmt.Errorf("failed to create transaction: %w", err)
		}
	}

	res, err := dbTx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`, status, id, previous)
	if err != nil {
		slog.Error("failed to update order status", "method", "UpdateStatus", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected != 1 {
		err = pkgerrors.ErrConcurrentUpdate
		return nil, err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "UpdateStatus", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.Status = status
	attrs := []any{"method", "UpdateStatus", "order_id", id, "from", previous, "to", status}
	if entry != nil {
		attrs = append(attrs, "transaction_id", entry.ID)
	}
	slog.Info("order status updated", attrs...)
	return order, nil
}
