package db

import (
	"context"
	"sort"
	"sync"

	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/checkout"
	"github.com/tjper/storefront/internal/identity"
)

// NewMock creates a new Mock instance.
func NewMock(options ...MockOption) *Mock {
	mock := &Mock{
		mutex:    new(sync.Mutex),
		products: make(map[int]catalog.Product),
		accounts: make(map[string]identity.Account),
		resets:   make(map[string]string),
	}
	for _, option := range options {
		option(mock)
	}
	return mock
}

// MockOption is a function type that should configure the Mock instance.
type MockOption func(*Mock)

// WithProducts seeds the Mock's catalog.
func WithProducts(products ...catalog.Product) MockOption {
	return func(m *Mock) {
		for _, product := range products {
			m.products[product.ID] = product
			if product.ID > m.lastID {
				m.lastID = product.ID
			}
		}
	}
}

// WithCreateOrderError configures CreateOrder to fail with err.
func WithCreateOrderError(err error) MockOption {
	return func(m *Mock) { m.createOrderErr = err }
}

// Mock is an in-memory Store, typically used for testing.
type Mock struct {
	mutex    *sync.Mutex
	products map[int]catalog.Product
	lastID   int
	accounts map[string]identity.Account
	resets   map[string]string
	orders   []checkout.Order

	createOrderErr error
}

func (m *Mock) Product(_ context.Context, id int) (*catalog.Product, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	product, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductDNE
	}
	return &product, nil
}

func (m *Mock) Products(_ context.Context) ([]catalog.Product, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	products := make([]catalog.Product, 0, len(m.products))
	for _, product := range m.products {
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (m *Mock) SaveProduct(_ context.Context, p catalog.Product) (*catalog.Product, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if p.ID == 0 {
		m.lastID++
		p.ID = m.lastID
	} else if _, ok := m.products[p.ID]; !ok {
		return nil, catalog.ErrProductDNE
	}
	m.products[p.ID] = p
	return &p, nil
}

func (m *Mock) DeleteProduct(_ context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.products[id]; !ok {
		return catalog.ErrProductDNE
	}
	delete(m.products, id)
	return nil
}

func (m *Mock) CreateAccount(_ context.Context, account *identity.Account) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.accounts[account.Email] = *account
	return nil
}

func (m *Mock) AccountByEmail(_ context.Context, email string) (*identity.Account, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, ok := m.accounts[email]
	if !ok {
		return nil, identity.ErrAccountDNE
	}
	return &account, nil
}

func (m *Mock) CreatePasswordReset(_ context.Context, uid, hash string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.resets[hash] = uid
	return nil
}

func (m *Mock) CreateOrder(_ context.Context, order checkout.Order) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.createOrderErr != nil {
		return m.createOrderErr
	}
	m.orders = append(m.orders, order)
	return nil
}

// Orders retrieves the recorded orders, newest first.
func (m *Mock) Orders(_ context.Context) ([]checkout.Order, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	orders := make([]checkout.Order, len(m.orders))
	for i, order := range m.orders {
		orders[len(m.orders)-1-i] = order
	}
	return orders, nil
}
