package ginserver

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	domainproduct "valikoo/internal/domain/product"
	"valikoo/internal/infra/storage/memory"
	"valikoo/internal/realtime"
)

type productFixture struct {
	handler  ProductHandler
	products *memory.ProductRepository
	owner    *recordConn
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := realtime.NewRegistry()
	owner := &recordConn{}
	registry.Bind("traveler-1", owner)

	products := memory.NewProductRepository()
	return &productFixture{
		handler: ProductHandler{
			Products:    products,
			Trips:       memory.NewTripRepository(),
			Broadcaster: realtime.NewBroadcaster(registry, nil),
		},
		products: products,
		owner:    owner,
	}
}

func seedProduct(t *testing.T, repo *memory.ProductRepository, id, ownerID string) *domainproduct.Product {
	t.Helper()
	product, err := domainproduct.NewProduct(domainproduct.CreateParams{
		ID:      id,
		OwnerID: ownerID,
		Title:   "AirPods Pro",
		Price:   249,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), product))
	return product
}

func TestCreateProductBroadcastsUpdate(t *testing.T) {
	fx := newProductFixture(t)

	w, c := jsonRequest(t, http.MethodPost, gin.H{
		"title":            "Matcha powder",
		"price":            35.5,
		"departureAirport": "NRT",
		"arrivalAirport":   "CDG",
	})
	asPrincipal(c, "traveler-1", "traveler")
	fx.handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, "Matcha powder", view["title"])
	require.Equal(t, domainproduct.StatusActive, view["status"])
	require.Equal(t, true, view["isActive"])

	payloads := fx.owner.payloads()
	require.Len(t, payloads, 1)
	var event realtime.ProductUpdateEvent
	require.NoError(t, json.Unmarshal(payloads[0], &event))
	require.Equal(t, realtime.EventProductUpdate, event.Type)
	require.Equal(t, realtime.ActionCreated, event.Action)
	require.Equal(t, view["id"], event.Product.ID)
}

func TestCreateProductRequiresTitle(t *testing.T) {
	fx := newProductFixture(t)

	w, c := jsonRequest(t, http.MethodPost, gin.H{"price": 10})
	asPrincipal(c, "traveler-1", "traveler")
	fx.handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFulfillByOwner(t *testing.T) {
	fx := newProductFixture(t)
	product := seedProduct(t, fx.products, "prod-1", "traveler-1")

	w, c := jsonRequest(t, http.MethodPost, nil)
	asPrincipal(c, "traveler-1", "traveler")
	c.Params = gin.Params{{Key: "id", Value: product.ID}}
	fx.handler.Fulfill(c)

	require.Equal(t, http.StatusOK, w.Code)

	stored, err := fx.products.ByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)
	require.Equal(t, domainproduct.StatusFulfilled, stored.Status)

	payloads := fx.owner.payloads()
	require.Len(t, payloads, 1)
	var event realtime.ProductUpdateEvent
	require.NoError(t, json.Unmarshal(payloads[0], &event))
	require.Equal(t, realtime.ActionFulfilled, event.Action)
}

func TestFulfillByNonOwnerIsNotFound(t *testing.T) {
	fx := newProductFixture(t)
	product := seedProduct(t, fx.products, "prod-1", "traveler-1")

	w, c := jsonRequest(t, http.MethodPost, nil)
	asPrincipal(c, "mallory", "traveler")
	c.Params = gin.Params{{Key: "id", Value: product.ID}}
	fx.handler.Fulfill(c)

	require.Equal(t, http.StatusNotFound, w.Code)

	// Unchanged.
	stored, err := fx.products.ByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.Equal(t, domainproduct.StatusActive, stored.Status)
	require.Empty(t, fx.owner.payloads())
}

func TestCatalogExcludesFulfilled(t *testing.T) {
	fx := newProductFixture(t)
	seedProduct(t, fx.products, "prod-1", "traveler-1")
	seedProduct(t, fx.products, "prod-2", "traveler-1")
	require.NoError(t, fx.products.MarkFulfilled(context.Background(), "prod-2", "traveler-1"))

	w, c := jsonRequest(t, http.MethodGet, nil)
	fx.handler.Catalog(c)
	require.Equal(t, http.StatusOK, w.Code)

	var views []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "prod-1", views[0]["id"])
}

func TestCatalogPriceFilterAndSort(t *testing.T) {
	fx := newProductFixture(t)
	cheap := seedProduct(t, fx.products, "prod-cheap", "traveler-1")
	cheap.Price = 10
	require.NoError(t, fx.products.Save(context.Background(), cheap))
	mid := seedProduct(t, fx.products, "prod-mid", "traveler-1")
	mid.Price = 50
	require.NoError(t, fx.products.Save(context.Background(), mid))
	pricey := seedProduct(t, fx.products, "prod-pricey", "traveler-1")
	pricey.Price = 500
	require.NoError(t, fx.products.Save(context.Background(), pricey))

	w, c := jsonRequest(t, http.MethodGet, nil)
	c.Request.URL.RawQuery = "min_price=20&max_price=600&sort_by=price&order=asc"
	fx.handler.Catalog(c)
	require.Equal(t, http.StatusOK, w.Code)

	var views []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 2)
	require.Equal(t, "prod-mid", views[0]["id"])
	require.Equal(t, "prod-pricey", views[1]["id"])
}

func TestUpdateProductOwnership(t *testing.T) {
	fx := newProductFixture(t)
	product := seedProduct(t, fx.products, "prod-1", "traveler-1")

	w, c := jsonRequest(t, http.MethodPatch, gin.H{"price": 99.0})
	asPrincipal(c, "mallory", "buyer")
	c.Params = gin.Params{{Key: "id", Value: product.ID}}
	fx.handler.Update(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, c = jsonRequest(t, http.MethodPatch, gin.H{"price": 99.0})
	asPrincipal(c, "admin-1", "admin")
	c.Params = gin.Params{{Key: "id", Value: product.ID}}
	fx.handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := fx.products.ByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, 99.0, stored.Price)
}
