package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCheckoutServer(t *testing.T) (*httptest.Server, *repository.OrderRepo, *repository.ProductRepo) {
	t.Helper()
	logger := zap.NewNop()

	orders := repository.NewOrderRepo(nil, logger, nil)
	products := repository.NewProductRepo(nil, logger, nil)

	r := NewRouter(logger)
	NewCheckoutHandler(orders, products,
		&StaticPaymentProvider{StoreURL: "https://store.example"},
		"https://store.example", logger).Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, orders, products
}

func seedProduct(t *testing.T, products *repository.ProductRepo, name string) repository.Product {
	t.Helper()
	p, err := products.Create(context.Background(), "tenant-1", repository.Fields{
		"name":       name,
		"price":      25.0,
		"categoryId": "cat_1",
		"sizeId":     "size_1",
		"colorId":    "color_1",
		"images":     []string{"https://cdn/img.png"},
	})
	require.NoError(t, err)
	return p
}

func TestCheckoutCreatesUnpaidOrder(t *testing.T) {
	srv, orders, products := newCheckoutServer(t)
	p := seedProduct(t, products, "boots")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/tenant-1/checkout", "",
		map[string]any{"productIds": []string{p.ID}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://store.example", resp.Header.Get("Access-Control-Allow-Origin"))

	var out struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(body, &out))

	listed := orders.List(context.Background(), "tenant-1")
	require.Len(t, listed, 1)
	require.False(t, listed[0].IsPaid)
	require.Equal(t, []string{p.ID}, listed[0].ProductIDs)
	require.Equal(t, "https://store.example/cart?orderId="+listed[0].ID, out.URL)
}

func TestCheckoutRequiresProductIDs(t *testing.T) {
	srv, _, _ := newCheckoutServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/tenant-1/checkout", "",
		map[string]any{"productIds": []string{}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Product ids are required", string(body))
}

func TestCheckoutSkipsMissingProducts(t *testing.T) {
	srv, orders, products := newCheckoutServer(t)
	p := seedProduct(t, products, "boots")

	// The order still references the missing id; only the payment session's
	// product list drops it.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/tenant-1/checkout", "",
		map[string]any{"productIds": []string{p.ID, "prod_gone"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listed := orders.List(context.Background(), "tenant-1")
	require.Len(t, listed, 1)
	require.Equal(t, []string{p.ID, "prod_gone"}, listed[0].ProductIDs)
}

func TestWebhookMarksPaidAndArchives(t *testing.T) {
	srv, orders, products := newCheckoutServer(t)
	ctx := context.Background()
	p := seedProduct(t, products, "boots")

	order, err := orders.Create(ctx, "tenant-1", repository.Fields{
		"productIds": []string{p.ID},
		"isPaid":     false,
	})
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/webhook", "", map[string]any{
		"tenantId": "tenant-1",
		"orderId":  order.ID,
		"phone":    "555-0101",
		"address":  "1 Main St",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"received":true}`, string(body))

	got, err := orders.Get(ctx, "tenant-1", order.ID)
	require.NoError(t, err)
	require.True(t, got.IsPaid)
	require.Equal(t, "555-0101", got.Phone)
	require.Equal(t, "1 Main St", got.Address)

	archived, err := products.Get(ctx, "tenant-1", p.ID)
	require.NoError(t, err)
	require.True(t, archived.IsArchived)
}

func TestWebhookRejectsIncompleteEvent(t *testing.T) {
	srv, _, _ := newCheckoutServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/webhook", "",
		map[string]any{"orderId": "order_1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutPreflight(t *testing.T) {
	srv, _, _ := newCheckoutServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/tenant-1/checkout", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://store.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
