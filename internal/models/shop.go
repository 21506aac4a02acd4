package models

import "github.com/shopspring/decimal"

type Shop struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	Name      string `json:"shop_name"`
	OwnerName string `json:"owner_name,omitempty"`
}

const DefaultCategory = "General"

type Product struct {
	ID       int64           `json:"id"`
	ShopID   int64           `json:"shop_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

// CustomerBalance is one row of a shop's udhaar summary.
type CustomerBalance struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Balance      decimal.Decimal `json:"balance"`
}
