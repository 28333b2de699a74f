package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleAdmin     = "admin"
	RoleAffiliate = "affiliate"
	RoleCustomer  = "customer"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID                string    `bun:"id,pk" json:"id"`
	Email             string    `bun:"email,unique,notnull" json:"email"`
	FullName          string    `bun:"full_name,notnull" json:"full_name"`
	Phone             string    `bun:"phone" json:"phone,omitempty"`
	Roles             []string  `bun:"roles,type:jsonb" json:"roles"`
	ReferralCode      *string   `bun:"referral_code,unique" json:"referral_code,omitempty"`
	BankName          string    `bun:"bank_name" json:"bank_name,omitempty"`
	BankAccountNumber string    `bun:"bank_account_number" json:"bank_account_number,omitempty"`
	BankAccountHolder string    `bun:"bank_account_holder" json:"bank_account_holder,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
