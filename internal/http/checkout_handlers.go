package httpapi

import (
	"context"
	"net/http"

	"storefront-data/internal/repository"

	"go.uber.org/zap"
)

// PaymentProvider is the opaque payment collaborator: it turns an unpaid
// order into a hosted checkout URL. Signature verification and everything
// else payment-related lives behind it.
type PaymentProvider interface {
	CreateSession(ctx context.Context, order repository.Order, products []repository.Product) (url string, err error)
}

// StaticPaymentProvider is the dev stand-in: it links straight to the
// storefront cart with the order id attached.
type StaticPaymentProvider struct {
	StoreURL string
}

func (p *StaticPaymentProvider) CreateSession(_ context.Context, order repository.Order, _ []repository.Product) (string, error) {
	return p.StoreURL + "/cart?orderId=" + order.ID, nil
}

// CheckoutHandler serves the storefront-facing checkout plus the payment
// webhook. Both ride on the same dual-backend order repository as the admin
// routes, so a degraded durable store does not block checkout either.
type CheckoutHandler struct {
	orders   *repository.OrderRepo
	products *repository.ProductRepo
	payments PaymentProvider
	// storeURL is the public storefront origin allowed to call checkout
	// cross-origin.
	storeURL string
	logger   *zap.Logger
}

func NewCheckoutHandler(orders *repository.OrderRepo, products *repository.ProductRepo,
	payments PaymentProvider, storeURL string, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		orders:   orders,
		products: products,
		payments: payments,
		storeURL: storeURL,
		logger:   logger,
	}
}

func (h *CheckoutHandler) Register(r *Router) {
	r.Handle("POST /api/{tenant}/checkout", h.Checkout)
	r.Handle("OPTIONS /api/{tenant}/checkout", h.Preflight)
	r.Handle("POST /api/webhook", h.Webhook)
}

func (h *CheckoutHandler) cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", h.storeURL)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Credentials", "true")
}

func (h *CheckoutHandler) Preflight(w http.ResponseWriter, _ *http.Request) {
	h.cors(w)
	writeJSON(w, http.StatusOK, map[string]any{})
}

// Checkout creates an unpaid order for the requested products and responds
// with the payment URL.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.cors(w)
	tenant := r.PathValue("tenant")
	if tenant == "" {
		writeText(w, http.StatusBadRequest, "Tenant id is required")
		return
	}

	var body struct {
		ProductIDs []string `json:"productIds"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if len(body.ProductIDs) == 0 {
		writeText(w, http.StatusBadRequest, "Product ids are required")
		return
	}

	// Missing ids are skipped rather than failing the whole checkout; the
	// order still references every requested id.
	products := make([]repository.Product, 0, len(body.ProductIDs))
	for _, id := range body.ProductIDs {
		p, err := h.products.Get(r.Context(), tenant, id)
		if err != nil {
			continue
		}
		products = append(products, p)
	}

	order, err := h.orders.Create(r.Context(), tenant, repository.Fields{
		"productIds": body.ProductIDs,
		"isPaid":     false,
	})
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	url, err := h.payments.CreateSession(r.Context(), order, products)
	if err != nil {
		h.logger.Error("payment session creation failed",
			zap.String("order_id", order.ID), zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

// webhookEvent is the payment-confirmed notification. Verification happened
// upstream; by the time this arrives the payment is a fact.
type webhookEvent struct {
	TenantID string `json:"tenantId"`
	OrderID  string `json:"orderId"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Webhook marks the order paid, stamps the buyer contact details, and
// archives the purchased products so they drop out of storefront listings.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var ev webhookEvent
	if err := readBodyJSON(r, 1<<20, &ev); err != nil || ev.OrderID == "" || ev.TenantID == "" {
		writeText(w, http.StatusBadRequest, "Invalid event")
		return
	}

	order, err := h.orders.Update(r.Context(), ev.TenantID, ev.OrderID, repository.Fields{
		"isPaid":  true,
		"phone":   ev.Phone,
		"address": ev.Address,
	})
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	for _, productID := range order.ProductIDs {
		if _, err := h.products.Update(r.Context(), ev.TenantID, productID, repository.Fields{
			"isArchived": true,
		}); err != nil {
			h.logger.Warn("failed to archive purchased product",
				zap.String("product_id", productID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
