package page

import (
	"context"
	"errors"

	"github.com/tjper/storefront/internal/cart"
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/checkout"
	"github.com/tjper/storefront/internal/identity"
	"github.com/tjper/storefront/internal/notify"

	"go.uber.org/zap"
)

func (p *page) handle(ctx context.Context, msg Inbound) {
	p.logger.Debug("page message", zap.String("type", msg.Type))

	switch msg.Type {
	case typeSignIn:
		p.auth(msg.Type, "Signed in.", p.provider.SignInWithPassword(ctx, msg.Email, msg.Password))
	case typeSignUp:
		p.auth(msg.Type, "Account created.", p.provider.SignUpWithPassword(ctx, msg.Email, msg.Password))
	case typePopup:
		p.auth(msg.Type, "Signed in.", p.provider.SignInWithPopup(ctx, msg.Provider, msg.Credential))
	case typeReset:
		p.auth(msg.Type, "Password reset email sent.", p.provider.SendPasswordResetEmail(ctx, msg.Email))
	case typeSignOut:
		p.auth(msg.Type, "Signed out.", p.authority.SignOut(ctx))

	case typeCartAdd:
		p.cartResult(msg.Type, p.cart.AddItem(ctx, msg.ProductID))
	case typeCartUpdate:
		p.cartResult(msg.Type, p.cart.UpdateQuantity(ctx, msg.ProductID, msg.Delta))
	case typeCartRemove:
		p.cartResult(msg.Type, p.cart.RemoveItem(ctx, msg.ProductID))
	case typeCartClear:
		p.cartResult(msg.Type, p.cart.Clear(ctx))

	case typeCheckoutStart:
		err := p.flow.Start(ctx)
		if err != nil && !errors.Is(err, checkout.ErrUnauthenticated) && !errors.Is(err, checkout.ErrEmptyCart) {
			p.logger.Error("start checkout", zap.Error(err))
		}
	case typeCheckoutResult:
		p.resolve(msg.Reference, msg.Cancelled)

	case typeProductsSave:
		p.saveProduct(ctx, msg.Product)
	case typeProductsDelete:
		p.deleteProduct(ctx, msg.ProductID)
	case typeOrders:
		p.orders(ctx)

	default:
		p.send(TypeError, Failure{Request: msg.Type, Message: "Unrecognized message type."})
	}
}

// auth surfaces the outcome of an identity operation. Sign-in state itself
// arrives through the identity feed.
func (p *page) auth(typ, success string, err error) {
	if err != nil {
		p.logger.Info("identity operation failed", zap.String("type", typ), zap.Error(err))
		p.signaler.Signal(notify.Error(identity.Message(err)))
		return
	}
	p.signaler.Signal(notify.Success(success))
}

func (p *page) cartResult(typ string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, cart.ErrUnauthenticated):
	case errors.Is(err, cart.ErrLoading):
		p.signaler.Signal(notify.Info("Your cart is still loading. Please try again in a moment."))
	case cart.AsSaveError(err) != nil:
		p.logger.Warn("cart saved locally", zap.String("type", typ), zap.Error(err))
	default:
		p.logger.Error("cart operation", zap.String("type", typ), zap.Error(err))
	}
}

func (p *page) resolve(reference string, cancelled bool) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if err := p.gateway.Resolve(reference, cancelled); err != nil {
			p.logger.Warn("resolve payment", zap.Error(err))
			p.signaler.Signal(notify.Error("We couldn't find that payment. Please contact support if you were charged."))
		}
	}()
}

func (p *page) saveProduct(ctx context.Context, input *ProductInput) {
	if !p.authority.RequireAdmin("manage products") {
		return
	}
	if input == nil {
		p.send(TypeError, Failure{Request: typeProductsSave, Message: "A product is required."})
		return
	}
	if err := p.valid.Struct(input); err != nil {
		p.logger.Info("invalid product", zap.Error(err))
		p.signaler.Signal(notify.Error("Please provide a name, a category and a positive price."))
		return
	}

	product, err := p.store.SaveProduct(ctx, input.toCatalog())
	if errors.Is(err, catalog.ErrProductDNE) {
		p.signaler.Signal(notify.Error("Product not found."))
		return
	}
	if err != nil {
		p.logger.Error("save product", zap.Error(err))
		p.signaler.Signal(notify.Error("We couldn't save the product. Please try again."))
		return
	}

	p.logger.Info("product saved", zap.Int("product-id", product.ID))
	p.signaler.Signal(notify.Success("Product saved."))
	p.sendProducts(ctx)
}

func (p *page) deleteProduct(ctx context.Context, id int) {
	if !p.authority.RequireAdmin("manage products") {
		return
	}

	err := p.store.DeleteProduct(ctx, id)
	if errors.Is(err, catalog.ErrProductDNE) {
		p.signaler.Signal(notify.Error("Product not found."))
		return
	}
	if err != nil {
		p.logger.Error("delete product", zap.Error(err))
		p.signaler.Signal(notify.Error("We couldn't delete the product. Please try again."))
		return
	}

	p.logger.Info("product deleted", zap.Int("product-id", id))
	p.signaler.Signal(notify.Success("Product deleted."))
	p.sendProducts(ctx)
}

func (p *page) orders(ctx context.Context) {
	if !p.authority.RequireAdmin("view orders") {
		return
	}

	orders, err := p.store.Orders(ctx)
	if err != nil {
		p.logger.Error("list orders", zap.Error(err))
		p.signaler.Signal(notify.Error("We couldn't load orders. Please try again."))
		return
	}
	p.send(TypeOrders, orders)
}

func (p *page) sendProducts(ctx context.Context) {
	products, err := p.store.Products(ctx)
	if err != nil {
		p.logger.Error("list products", zap.Error(err))
		p.signaler.Signal(notify.Warning("We couldn't load products. Please refresh the page."))
		return
	}
	p.send(TypeProducts, products)
}
