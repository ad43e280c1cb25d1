package page

import (
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/identity"
)

// Inbound message types.
const (
	typeSignIn         = "auth.signIn"
	typeSignUp         = "auth.signUp"
	typePopup          = "auth.popup"
	typeReset          = "auth.reset"
	typeSignOut        = "auth.signOut"
	typeCartAdd        = "cart.add"
	typeCartUpdate     = "cart.update"
	typeCartRemove     = "cart.remove"
	typeCartClear      = "cart.clear"
	typeCheckoutStart  = "checkout.start"
	typeCheckoutResult = "checkout.result"
	typeProductsSave   = "admin.products.save"
	typeProductsDelete = "admin.products.delete"
	typeOrders         = "admin.orders"
)

// Outbound message types.
const (
	TypeConfig          = "config"
	TypeSession         = "session"
	TypeCart            = "cart"
	TypeToast           = "toast"
	TypePaymentRedirect = "payment.redirect"
	TypeProducts        = "products"
	TypeOrders          = "orders"
	TypeError           = "error"
)

// Inbound is a message sent by the browser. Only the fields of Type are set.
type Inbound struct {
	Type string `json:"type"`

	Email      string                `json:"email,omitempty"`
	Password   string                `json:"password,omitempty"`
	Provider   identity.ProviderKind `json:"provider,omitempty"`
	Credential string                `json:"credential,omitempty"`

	ProductID int `json:"productId,omitempty"`
	Delta     int `json:"delta,omitempty"`

	Reference string `json:"reference,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`

	Product *ProductInput `json:"product,omitempty"`
}

// ProductInput is a product created or updated from the admin panel. A zero
// ID creates a new product.
type ProductInput struct {
	ID          int    `json:"id" validate:"gte=0"`
	Name        string `json:"name" validate:"required"`
	Price       int64  `json:"price" validate:"gt=0"`
	Category    string `json:"category" validate:"required"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	Description string `json:"description"`
	Stock       *int   `json:"stock" validate:"omitempty,gte=0"`
}

func (p ProductInput) toCatalog() catalog.Product {
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

// Outbound is a message sent to the browser.
type Outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Redirect asks the browser to open the hosted payment page.
type Redirect struct {
	Reference string `json:"reference"`
	URL       string `json:"url"`
}

// Failure reports an inbound message that could not be handled.
type Failure struct {
	Request string `json:"request"`
	Message string `json:"message"`
}
