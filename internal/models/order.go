package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderAccepted       OrderStatus = "accepted"
	OrderOutForDelivery OrderStatus = "out-for-delivery"
	OrderCompleted      OrderStatus = "completed"
	OrderRejected       OrderStatus = "rejected"
)

// orderTransitions lists the legal successors of every status. Final
// statuses have none.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderAccepted, OrderRejected},
	OrderAccepted:       {OrderOutForDelivery},
	OrderOutForDelivery: {OrderCompleted},
	OrderCompleted:      nil,
	OrderRejected:       nil,
}

// ActiveOrderStatuses are the statuses shown as in-flight to a customer.
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderAccepted, OrderOutForDelivery}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Final() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

func (s OrderStatus) Active() bool {
	for _, a := range ActiveOrderStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is a snapshot of a product taken when the order was placed.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// UnmarshalJSON requires a price. Older clients send it as "price".
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string           `json:"name"`
		UnitPrice *decimal.Decimal `json:"unit_price"`
		Price     *decimal.Decimal `json:"price"`
		Quantity  int              `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	price := raw.UnitPrice
	if price == nil {
		price = raw.Price
	}
	if price == nil {
		return pkgerrors.Validationf("item %q: unit_price is required", raw.Name)
	}
	*li = LineItem{Name: raw.Name, UnitPrice: *price, Quantity: raw.Quantity}
	return nil
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	ShopID       int64           `json:"shop_id"`
	Items        []LineItem      `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       OrderStatus     `json:"status"`
	CustomerName string          `json:"customer_name,omitempty"`
	ShopName     string          `json:"shop_name,omitempty"`
	CreatedAt    time.Time       `json:"timestamp"`
}

// NewOrder builds a pending order and computes its total from the items.
func NewOrder(customerID, shopID int64, items []LineItem) *Order {
	snapshot := make([]LineItem, len(items))
	copy(snapshot, items)
	return &Order{
		CustomerID:  customerID,
		ShopID:      shopID,
		Items:       snapshot,
		TotalAmount: TotalOf(snapshot),
		Status:      OrderPending,
	}
}

func TotalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Summary renders the items as "Rice x2, Milk x1".
func (o *Order) Summary() string {
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// PurchaseTransaction is the ledger entry created when the order completes.
func (o *Order) PurchaseTransaction() *Transaction {
	orderID := o.ID
	return &Transaction{
		CustomerID:  o.CustomerID,
		ShopID:      o.ShopID,
		OrderID:     &orderID,
		Amount:      o.TotalAmount,
		Type:        TypePurchase,
		Description: o.Summary(),
	}
}
