// Package model contains the Postgres entities of the storefront.
package model

import (
	"database/sql"
	"time"

	"github.com/tjper/storefront/internal/cart"
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/checkout"
	"github.com/tjper/storefront/internal/identity"
	"github.com/tjper/storefront/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          int    `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Price       int64  `gorm:"not null"`
	Category    string `gorm:"not null"`
	ImageURL    string
	Description string
	Stock       *int

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (p Product) ToCatalog() catalog.Product {
	return catalog.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Stock:       p.Stock,
	}
}

func ProductFromCatalog(p catalog.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Stock:       p.Stock,
	}
}

type Account struct {
	model.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password []byte
	Salt     string
	Provider string `gorm:"not null"`

	PasswordResets []PasswordReset
}

func (a Account) ToIdentity() identity.Account {
	return identity.Account{
		UID:      a.ID.String(),
		Email:    a.Email,
		Password: a.Password,
		Salt:     a.Salt,
		Provider: identity.ProviderKind(a.Provider),
	}
}

// AccountFromIdentity converts a. The UID of a must be a UUID.
func AccountFromIdentity(a identity.Account) (Account, error) {
	id, err := uuid.Parse(a.UID)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Model:    model.Model{ID: id},
		Email:    a.Email,
		Password: a.Password,
		Salt:     a.Salt,
		Provider: string(a.Provider),
	}, nil
}

type PasswordReset struct {
	model.Model
	ResetHash   string    `gorm:"uniqueIndex;not null"`
	RequestedAt time.Time `gorm:"not null"`
	CompletedAt sql.NullTime

	AccountID uuid.UUID `gorm:"not null"`
}

type Order struct {
	model.Model
	UserID    string `gorm:"index;not null"`
	Email     string `gorm:"not null"`
	Reference string `gorm:"uniqueIndex;not null"`
	Total     int64  `gorm:"not null"`
	Currency  string `gorm:"not null"`

	Items []OrderItem
}

type OrderItem struct {
	model.Model
	OrderID   uuid.UUID `gorm:"not null"`
	ProductID int       `gorm:"not null"`
	Name      string    `gorm:"not null"`
	Price     int64     `gorm:"not null"`
	Quantity  int       `gorm:"not null"`
	Category  string
}

func OrderFromCheckout(o checkout.Order) Order {
	items := make([]OrderItem, 0, len(o.Items))
	for _, line := range o.Items {
		items = append(items, OrderItem{
			OrderID:   o.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Category:  line.Category,
		})
	}

	return Order{
		Model:     model.Model{ID: o.ID, CreatedAt: o.CreatedAt},
		UserID:    o.UserID,
		Email:     o.Email,
		Reference: o.Reference,
		Total:     o.Total,
		Currency:  o.Currency,
		Items:     items,
	}
}

func (o Order) ToCheckout() checkout.Order {
	items := make(cart.Cart, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, cart.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Name:      item.Name,
			Price:     item.Price,
			Category:  item.Category,
		})
	}

	return checkout.Order{
		ID:        o.ID,
		UserID:    o.UserID,
		Email:     o.Email,
		Reference: o.Reference,
		Total:     o.Total,
		Currency:  o.Currency,
		Items:     items,
		CreatedAt: o.CreatedAt,
	}
}
