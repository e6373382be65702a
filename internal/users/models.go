package users

import "time"

const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

func ValidRole(r string) bool { return r == RoleBuyer || r == RoleAdmin }

type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	Phone          *string   `json:"phone"`
	Address        *string   `json:"address"`
	City           *string   `json:"city"`
	PurchaseVolume *string   `json:"purchase_volume"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"-"`
}

type Patch struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	City           *string `json:"city"`
	PurchaseVolume *string `json:"purchase_volume"`
	IsActive       *bool   `json:"is_active"`
	Role           *string `json:"role"`
}

type Filter struct {
	Role   string
	Search string
}
