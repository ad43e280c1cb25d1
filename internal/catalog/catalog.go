// Package catalog contains the product types shared by the cart, checkout and
// admin components.
package catalog

import (
	"context"
	"errors"
	"sync"
)

// ErrProductDNE indicates that a process attempted to interact with a product
// that does not exist.
var ErrProductDNE = errors.New("product does not exist")

// Product is a storefront product.
type Product struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
	Stock       *int   `json:"stock,omitempty"`
}

// NewMock creates a new Mock instance containing products.
func NewMock(products ...Product) *Mock {
	mock := &Mock{
		mutex:    new(sync.RWMutex),
		products: make(map[int]Product),
	}
	for _, product := range products {
		mock.products[product.ID] = product
	}
	return mock
}

// Mock is an in-memory catalog, typically used for testing.
type Mock struct {
	mutex    *sync.RWMutex
	products map[int]Product
}

// Product retrieves the product with the specified id. If it does not exist,
// ErrProductDNE is returned.
func (m Mock) Product(_ context.Context, id int) (*Product, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	product, ok := m.products[id]
	if !ok {
		return nil, ErrProductDNE
	}
	return &product, nil
}
