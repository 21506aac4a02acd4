package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleShopkeeper Role = "shopkeeper"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleShopkeeper
}

type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Name         string          `json:"name"`
	Role         Role            `json:"role"`
	Address      string          `json:"address,omitempty"`
	SocietyName  string          `json:"society_name,omitempty"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProfileUpdate carries the optional fields of a profile edit; nil leaves
// the stored value unchanged.
type ProfileUpdate struct {
	Name         *string          `json:"name,omitempty"`
	Address      *string          `json:"address,omitempty"`
	SocietyName  *string          `json:"society_name,omitempty"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit,omitempty"`
}

func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.SocietyName != nil {
		u.SocietyName = *p.SocietyName
	}
	if p.MonthlyLimit != nil {
		u.MonthlyLimit = *p.MonthlyLimit
	}
}

// Profile is what login returns to the client.
type Profile struct {
	User
	ShopID   int64  `json:"shop_id,omitempty"`
	ShopName string `json:"shop_name,omitempty"`
}
