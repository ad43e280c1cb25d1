// Package cart maintains the shopping cart of the signed-in user of a page.
// The Store gates every mutation behind the session authority, persists the
// cart to the remote document store and falls back to a local store when the
// remote store is unreachable.
package cart

import "github.com/tjper/storefront/internal/catalog"

// Line is a single product entry of a Cart. Name, Price and Category are a
// snapshot of the product when it was first added and are not re-synced with
// the catalog.
type Line struct {
	ProductID int    `json:"productId" msgpack:"productId"`
	Quantity  int    `json:"quantity" msgpack:"quantity"`
	Name      string `json:"name" msgpack:"name"`
	Price     int64  `json:"price" msgpack:"price"`
	Category  string `json:"category" msgpack:"category"`
}

// Subtotal retrieves the Line's price multiplied by its quantity.
func (l Line) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

// Cart is an ordered sequence of Lines. A Cart holds at most one Line per
// product, and every Line has a quantity of at least one.
type Cart []Line

// Total retrieves the sum of every Line's subtotal.
func (c Cart) Total() int64 {
	var total int64
	for _, line := range c {
		total += line.Subtotal()
	}
	return total
}

// Count retrieves the number of items in the Cart.
func (c Cart) Count() int {
	var count int
	for _, line := range c {
		count += line.Quantity
	}
	return count
}

// Clone retrieves a copy of the Cart. A nil Cart clones to an empty Cart.
func (c Cart) Clone() Cart {
	clone := make(Cart, len(c))
	copy(clone, c)
	return clone
}

// Quantity retrieves the quantity of productID in the Cart.
func (c Cart) Quantity(productID int) int {
	if i := c.index(productID); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

// --- mutations ---

func (c Cart) add(product catalog.Product) Cart {
	if i := c.index(product.ID); i >= 0 {
		c[i].Quantity++
		return c
	}
	return append(c, Line{
		ProductID: product.ID,
		Quantity:  1,
		Name:      product.Name,
		Price:     product.Price,
		Category:  product.Category,
	})
}

func (c Cart) update(productID, delta int) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}
	if c[i].Quantity+delta <= 0 {
		return c.remove(productID)
	}
	c[i].Quantity += delta
	return c
}

func (c Cart) remove(productID int) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}
	return append(c[:i], c[i+1:]...)
}

func (c Cart) index(productID int) int {
	for i := range c {
		if c[i].ProductID == productID {
			return i
		}
	}
	return -1
}
