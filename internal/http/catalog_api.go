package httpapi

import (
	"net/http"

	"storefront-data/internal/repository"

	"go.uber.org/zap"
)

// Repos bundles the per-kind repositories the HTTP surface is built over.
type Repos struct {
	Billboards *repository.BillboardRepo
	Categories *repository.CategoryRepo
	Sizes      *repository.SizeRepo
	Colors     *repository.ColorRepo
	Products   *repository.ProductRepo
	Orders     *repository.OrderRepo
}

// CatalogAPI aggregates the catalog route handlers for one deployment.
type CatalogAPI struct {
	billboards *EntityHandler[repository.Billboard, *repository.Billboard]
	categories *EntityHandler[repository.Category, *repository.Category]
	sizes      *EntityHandler[repository.Size, *repository.Size]
	colors     *EntityHandler[repository.Color, *repository.Color]
	products   *EntityHandler[repository.Product, *repository.Product]
	orders     *EntityHandler[repository.Order, *repository.Order]
}

func NewCatalogAPI(repos Repos, auth Authorizer, strict bool, logger *zap.Logger) *CatalogAPI {
	return &CatalogAPI{
		billboards: NewEntityHandler(repos.Billboards, repository.ValidateBillboard, auth, strict, logger),
		categories: NewEntityHandler(repos.Categories, repository.ValidateCategory, auth, strict, logger),
		sizes:      NewEntityHandler(repos.Sizes, repository.ValidateNameValue, auth, strict, logger),
		colors:     NewEntityHandler(repos.Colors, repository.ValidateNameValue, auth, strict, logger),
		products: NewEntityHandler(repos.Products, repository.ValidateProduct, auth, strict, logger).
			withListFilter(filterProducts),
		orders: NewEntityHandler(repos.Orders, repository.ValidateOrder, auth, strict, logger),
	}
}

// Register wires every catalog route. Orders are read-only here: they are
// created by checkout and mutated by the payment webhook, never directly.
func (api *CatalogAPI) Register(r *Router) {
	api.billboards.Register(r, "billboards")
	api.categories.Register(r, "categories")
	api.sizes.Register(r, "sizes")
	api.colors.Register(r, "colors")
	api.products.Register(r, "products")
	r.Handle("GET /api/{tenant}/orders", api.orders.List)
}

// filterProducts applies the storefront's list query knobs: reference-id
// filters, isFeatured, and the standing exclusion of archived products.
func filterProducts(r *http.Request, recs []repository.Product) []repository.Product {
	q := r.URL.Query()
	categoryID := q.Get("categoryId")
	sizeID := q.Get("sizeId")
	colorID := q.Get("colorId")
	featuredOnly := q.Get("isFeatured") != ""

	out := make([]repository.Product, 0, len(recs))
	for _, p := range recs {
		if p.IsArchived {
			continue
		}
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		if sizeID != "" && p.SizeID != sizeID {
			continue
		}
		if colorID != "" && p.ColorID != colorID {
			continue
		}
		if featuredOnly && !p.IsFeatured {
			continue
		}
		out = append(out, p)
	}
	return out
}
