package service

import (
	"context"
	"fmt"
	"strings"

	stderrors "errors"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/observability"
	"github.com/honeynil/UdhaarLedger/internal/infrastructure/redis"
	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/honeynil/UdhaarLedger/internal/realtime"
	"github.com/honeynil/UdhaarLedger/internal/repository"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const orderTracer = "order-service"

// StatusUpdate is the order_update payload.
type StatusUpdate struct {
	OrderID int64              `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

type OrderService struct {
	users       repository.UserRepository
	shops       repository.ShopRepository
	orders      repository.OrderRepository
	redisClient redis.RedisClient
	publisher   realtime.Publisher
}

func NewOrderService(
	users repository.UserRepository,
	shops repository.ShopRepository,
	orders repository.OrderRepository,
	redisClient redis.RedisClient,
	publisher realtime.Publisher,
) *OrderService {
	return &OrderService{
		users:       users,
		shops:       shops,
		orders:      orders,
		redisClient: redisClient,
		publisher:   publisher,
	}
}

func validateItems(items []models.LineItem) error {
	if len(items) == 0 {
		return pkgerrors.ErrEmptyOrder
	}
	for i, item := range items {
		switch {
		case strings.TrimSpace(item.Name) == "":
			return pkgerrors.Validationf("item %d: name is required", i)
		case item.Quantity <= 0:
			return pkgerrors.Validationf("item %d: quantity must be positive", i)
		case item.UnitPrice.IsNegative():
			return pkgerrors.Validationf("item %d: unit price cannot be negative", i)
		case !models.ValidMoneyScale(item.UnitPrice):
			return pkgerrors.Validationf("item %d: unit price has more than %d decimal places", i, models.MoneyScale)
		}
	}
	return nil
}

// PlaceOrder records a pending order for the customer at the shop and
// announces it on the shop's channel. The total is always computed here.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID, shopID int64, items []models.LineItem) (*models.Order, error) {
	ctx, span := startSpan(ctx, orderTracer, "PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer_id", customerID), attribute.Int64("shop_id", shopID))
	logger := observability.WithContext(ctx, "method", "PlaceOrder", "customer_id", customerID, "shop_id", shopID)

	if err := validateItems(items); err != nil {
		span.SetStatus(codes.Error, "invalid items")
		logger.Warn("order rejected", "error", err)
		return nil, err
	}

	customer, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		spanError(span, err, "customer lookup failed")
		return nil, err
	}
	if customer.Role != models.RoleCustomer {
		span.SetStatus(codes.Error, "not a customer")
		return nil, pkgerrors.ErrNotCustomer
	}
	if _, err := s.shops.GetByID(ctx, shopID); err != nil {
		spanError(span, err, "shop lookup failed")
		return nil, err
	}

	order := models.NewOrder(customerID, shopID, items)
	if err := s.orders.Create(ctx, order); err != nil {
		spanError(span, err, "order creation failed")
		logger.Error("failed to create order", "error", err)
		return nil, err
	}
	if order.CustomerName == "" {
		order.CustomerName = customer.Name
	}

	logger.Info("order placed", "order_id", order.ID, "total", order.TotalAmount.String())
	s.publish(ctx, shopID, realtime.EventNewOrder, order)
	return order, nil
}

// SetStatus moves the order along the lifecycle. Completing it writes the
// purchase entry in the same atomic step as the status change.
func (s *OrderService) SetStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	ctx, span := startSpan(ctx, orderTracer, "SetStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", orderID), attribute.String("status", string(status)))
	logger := observability.WithContext(ctx, "method", "SetStatus", "order_id", orderID, "status", status)

	if !status.Valid() {
		span.SetStatus(codes.Error, "unknown status")
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrInvalidStatus, status)
	}

	var previous models.OrderStatus
	updated, err := s.orders.UpdateStatus(ctx, orderID, status, func(current models.Order) (*models.Transaction, error) {
		previous = current.Status
		if current.Status.Final() {
			return nil, fmt.Errorf("%w: %s", pkgerrors.ErrTransitionFromFinal, current.Status)
		}
		if !current.Status.CanTransitionTo(status) {
			return nil, fmt.Errorf("%w: %s -> %s", pkgerrors.ErrInvalidTransition, current.Status, status)
		}
		if status == models.OrderCompleted {
			return current.PurchaseTransaction(), nil
		}
		return nil, nil
	})
	if err != nil {
		spanError(span, err, "status update failed")
		if stderrors.Is(err, pkgerrors.ErrInvalidTransition) {
			logger.Warn("status change rejected", "from", previous, "error", err)
		} else {
			logger.Error("failed to update order status", "error", err)
		}
		return nil, err
	}

	observability.OrderTransitions.WithLabelValues(string(previous), string(status)).Inc()
	if status == models.OrderCompleted {
		invalidateBalance(ctx, s.redisClient, updated.CustomerID)
	}

	logger.Info("order status changed", "from", previous)
	s.publish(ctx, updated.ShopID, realtime.EventOrderUpdate, StatusUpdate{OrderID: updated.ID, Status: updated.Status})
	return updated, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := startSpan(ctx, orderTracer, "GetOrder")
	defer span.End()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		spanError(span, err, "get order failed")
		return nil, err
	}
	return order, nil
}

// ListShopOrders returns the shop's orders, newest first.
func (s *OrderService) ListShopOrders(ctx context.Context, shopID int64) ([]models.Order, error) {
	ctx, span := startSpan(ctx, orderTracer, "ListShopOrders")
	defer span.End()

	if _, err := s.shops.GetByID(ctx, shopID); err != nil {
		spanError(span, err, "shop lookup failed")
		return nil, err
	}
	orders, err := s.orders.ListByShop(ctx, shopID)
	if err != nil {
		spanError(span, err, "list orders failed")
		return nil, err
	}
	return orders, nil
}

// publish never fails the caller; the change is already committed.
func (s *OrderService) publish(ctx context.Context, shopID int64, event string, payload any) {
	if err := s.publisher.Publish(ctx, shopID, event, payload); err != nil {
		observability.WithContext(ctx).Error("failed to publish event", "shop_id", shopID, "event", event, "error", err)
	}
}
