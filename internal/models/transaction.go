package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	ShopID      int64           `json:"shop_id"`
	OrderID     *int64          `json:"order_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	ShopName    string          `json:"shop_name,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TransactionType string

const (
	TypePurchase TransactionType = "purchase"
	TypePayment  TransactionType = "payment"
)

func (t TransactionType) Valid() bool {
	return t == TypePurchase || t == TypePayment
}

// CustomerSnapshot is the read-only composite view of one customer's ledger.
type CustomerSnapshot struct {
	Balance       decimal.Decimal `json:"current_balance"`
	ActiveOrders  []Order         `json:"active_orders"`
	RecentHistory []Transaction   `json:"history"`
}
