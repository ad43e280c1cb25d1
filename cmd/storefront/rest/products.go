package rest

import (
	errors "errors"
	http "net/http"
	"strconv"

	"github.com/tjper/storefront/internal/catalog"
	ihttp "github.com/tjper/storefront/internal/http"

	"github.com/go-chi/chi/v5"
)

type Products struct{ API }

func (ep Products) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	products, err := ep.catalog.Products(r.Context())
	if err != nil {
		ihttp.ErrInternal(ep.logger, w, err)
		return
	}

	ep.write(w, http.StatusOK, products)
}

type Product struct{ API }

func (ep Product) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		ihttp.ErrNotFound(w)
		return
	}

	product, err := ep.catalog.Product(r.Context(), id)
	if errors.Is(err, catalog.ErrProductDNE) {
		ihttp.ErrNotFound(w)
		return
	}
	if err != nil {
		ihttp.ErrInternal(ep.logger, w, err)
		return
	}

	ep.write(w, http.StatusOK, product)
}
