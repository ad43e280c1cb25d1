package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tjper/storefront/cmd/storefront/model"
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/checkout"
	"github.com/tjper/storefront/internal/identity"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ordersLimit bounds the orders listed by Orders.
const ordersLimit = 100

func NewStore(
	logger *zap.Logger,
	db *gorm.DB,
) *Store {
	return &Store{
		logger: logger,
		db:     db,
	}
}

// Store is the Postgres-backed storefront store.
type Store struct {
	logger *zap.Logger
	db     *gorm.DB
}

// --- catalog ---

func (s Store) Product(ctx context.Context, id int) (*catalog.Product, error) {
	var product model.Product
	res := s.db.WithContext(ctx).First(&product, id)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrProductDNE
	}
	if res.Error != nil {
		return nil, res.Error
	}

	p := product.ToCatalog()
	return &p, nil
}

func (s Store) Products(ctx context.Context) ([]catalog.Product, error) {
	var products []model.Product
	if res := s.db.WithContext(ctx).Order("id").Find(&products); res.Error != nil {
		return nil, res.Error
	}

	result := make([]catalog.Product, 0, len(products))
	for _, product := range products {
		result = append(result, product.ToCatalog())
	}
	return result, nil
}

// SaveProduct creates the product when its ID is zero and updates it
// otherwise.
func (s Store) SaveProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	product := model.ProductFromCatalog(p)

	var res *gorm.DB
	if product.ID == 0 {
		res = s.db.WithContext(ctx).Create(&product)
	} else {
		res = s.db.WithContext(ctx).
			Model(&model.Product{ID: product.ID}).
			Select("name", "price", "category", "image_url", "description", "stock").
			Updates(&product)
		if res.Error == nil && res.RowsAffected == 0 {
			return nil, catalog.ErrProductDNE
		}
	}
	if res.Error != nil {
		return nil, fmt.Errorf("save product; error: %w", res.Error)
	}

	return s.Product(ctx, product.ID)
}

func (s Store) DeleteProduct(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete product; error: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return catalog.ErrProductDNE
	}
	return nil
}

// --- accounts ---

func (s Store) CreateAccount(ctx context.Context, account *identity.Account) error {
	entity, err := model.AccountFromIdentity(*account)
	if err != nil {
		return fmt.Errorf("create account; error: %w", err)
	}
	if res := s.db.WithContext(ctx).Create(&entity); res.Error != nil {
		return fmt.Errorf("create account; error: %w", res.Error)
	}
	return nil
}

func (s Store) AccountByEmail(ctx context.Context, email string) (*identity.Account, error) {
	var account model.Account
	res := s.db.WithContext(ctx).Where("email = ?", email).First(&account)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, identity.ErrAccountDNE
	}
	if res.Error != nil {
		return nil, res.Error
	}

	a := account.ToIdentity()
	return &a, nil
}

func (s Store) CreatePasswordReset(ctx context.Context, uid, hash string) error {
	accountID, err := uuid.Parse(uid)
	if err != nil {
		return identity.ErrAccountDNE
	}

	reset := &model.PasswordReset{
		AccountID:   accountID,
		ResetHash:   hash,
		RequestedAt: time.Now(),
	}
	if res := s.db.WithContext(ctx).Create(reset); res.Error != nil {
		return fmt.Errorf("create password reset; error: %w", res.Error)
	}
	return nil
}

// --- orders ---

func (s Store) CreateOrder(ctx context.Context, order checkout.Order) error {
	entity := model.OrderFromCheckout(order)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entity).Error
	})
	if err != nil {
		return fmt.Errorf("create order; reference: %s, error: %w", order.Reference, err)
	}

	s.logger.Debug("order created", zap.String("order-id", entity.ID.String()))
	return nil
}

// Orders retrieves the most recent orders, newest first.
func (s Store) Orders(ctx context.Context) ([]checkout.Order, error) {
	var orders []model.Order
	res := s.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(ordersLimit).
		Find(&orders)
	if res.Error != nil {
		return nil, res.Error
	}

	result := make([]checkout.Order, 0, len(orders))
	for _, order := range orders {
		result = append(result, order.ToCheckout())
	}
	return result, nil
}
