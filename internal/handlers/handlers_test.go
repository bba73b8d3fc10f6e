package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/shop"
	"storefront/internal/store/memstore"
)

const testSecret = "handlers-test-secret"

type response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data"`
	Errors  []shop.FieldError `json:"errors"`
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memstore.New()
	logger := zaptest.NewLogger(t)
	return NewRouter(Deps{
		Store:     st,
		Services:  shop.New(st, nil, nil, logger),
		JWTSecret: testSecret,
		Logger:    logger,
	})
}

func userToken(t *testing.T, id primitive.ObjectID) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, middleware.Principal{ID: id, Type: middleware.TokenTypeUser}, time.Hour)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T, role string, permissions ...string) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, middleware.Principal{
		ID:          primitive.NewObjectID(),
		Type:        middleware.TokenTypeAdmin,
		Role:        role,
		Permissions: permissions,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func createProduct(t *testing.T, r http.Handler, title string, price float64, stock int) string {
	t.Helper()
	w, body := do(t, r, http.MethodPost, "/products", adminToken(t, "", middleware.PermissionProducts), gin.H{
		"title":         title,
		"price":         price,
		"stockQuantity": stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := body.Data["product"].(map[string]any)
	return product["id"].(string)
}

func stockOf(t *testing.T, r http.Handler, id string) float64 {
	t.Helper()
	w, body := do(t, r, http.MethodGet, "/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return body.Data["product"].(map[string]any)["stockQuantity"].(float64)
}

var testAddress = gin.H{
	"name":         "Asha Shrestha",
	"phone":        "9800000000",
	"province":     "Bagmati",
	"district":     "Kathmandu",
	"municipality": "Kathmandu Metropolitan",
	"ward":         "4",
	"street":       "Thamel Marg",
}

func TestCheckoutAndCancelFlow(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Desk Lamp", 2500, 10)
	token := userToken(t, primitive.NewObjectID())

	w, _ := do(t, r, http.MethodPost, "/cart/add", token, gin.H{"productId": productID, "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := do(t, r, http.MethodPost, "/orders/create", token, gin.H{
		"shippingAddress": testAddress,
		"paymentMethod":   "cash_on_delivery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := body.Data["order"].(map[string]any)
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, 7500.0, order["subtotal"])
	assert.Equal(t, 500.0, order["shippingCost"])
	assert.Equal(t, 8000.0, order["totalAmount"])
	assert.Equal(t, 7.0, stockOf(t, r, productID))

	_, body = do(t, r, http.MethodGet, "/cart", token, nil)
	assert.Empty(t, body.Data["cart"].(map[string]any)["items"])

	orderID := order["id"].(string)
	w, _ = do(t, r, http.MethodPut, "/orders/"+orderID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 10.0, stockOf(t, r, productID))

	w, body = do(t, r, http.MethodPut, "/orders/"+orderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	assert.Equal(t, 10.0, stockOf(t, r, productID))
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	r := newTestServer(t)
	token := userToken(t, primitive.NewObjectID())

	w, body := do(t, r, http.MethodPost, "/orders/create", token, gin.H{
		"shippingAddress": testAddress,
		"paymentMethod":   "esewa",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cart is empty", body.Message)
}

func TestCheckoutRejectsIncompleteAddress(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Mug", 400, 5)
	token := userToken(t, primitive.NewObjectID())
	do(t, r, http.MethodPost, "/cart/add", token, gin.H{"productId": productID})

	w, body := do(t, r, http.MethodPost, "/orders/create", token, gin.H{
		"shippingAddress": gin.H{"name": "Asha"},
		"paymentMethod":   "cash_on_delivery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, 5.0, stockOf(t, r, productID))
}

func TestAddToCartReportsAvailableStock(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Kettle", 1800, 2)
	token := userToken(t, primitive.NewObjectID())

	w, body := do(t, r, http.MethodPost, "/cart/add", token, gin.H{"productId": productID, "quantity": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, productID, body.Data["productId"])
	assert.Equal(t, 2.0, body.Data["available"])
	assert.Equal(t, 3.0, body.Data["requested"])
}

func TestAddToCartValidationUsesJSONFieldNames(t *testing.T) {
	r := newTestServer(t)
	token := userToken(t, primitive.NewObjectID())

	w, body := do(t, r, http.MethodPost, "/cart/add", token, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "productId", body.Errors[0].Field)

	w, _ = do(t, r, http.MethodPost, "/cart/add", token, gin.H{"productId": "not-an-id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutesRequireMatchingToken(t *testing.T) {
	r := newTestServer(t)

	w, _ := do(t, r, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, r, http.MethodGet, "/orders/admin/all", userToken(t, primitive.NewObjectID()), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, r, http.MethodGet, "/orders/admin/all", adminToken(t, "", middleware.PermissionProducts), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, r, http.MethodGet, "/orders/admin/all", adminToken(t, middleware.RoleSuperAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminStatusUpdateAndExport(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Backpack", 6000, 4)
	token := userToken(t, primitive.NewObjectID())
	admin := adminToken(t, "", middleware.PermissionOrders)

	do(t, r, http.MethodPost, "/cart/add", token, gin.H{"productId": productID, "quantity": 2})
	_, body := do(t, r, http.MethodPost, "/orders/create", token, gin.H{
		"shippingAddress": testAddress,
		"paymentMethod":   "khalti",
	})
	orderID := body.Data["order"].(map[string]any)["id"].(string)
	assert.Equal(t, 12000.0, body.Data["order"].(map[string]any)["totalAmount"])

	w, body := do(t, r, http.MethodPut, "/orders/admin/"+orderID+"/status", admin, gin.H{
		"status":         "shipped",
		"trackingNumber": "TRK-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "TRK-1", body.Data["order"].(map[string]any)["trackingNumber"])

	w, _ = do(t, r, http.MethodPut, "/orders/admin/"+orderID+"/status", admin, gin.H{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPut, "/orders/"+orderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 2.0, stockOf(t, r, productID))

	w, body = do(t, r, http.MethodGet, "/orders/admin/all?status=shipped", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body.Data["orders"], 1)

	w, _ = do(t, r, http.MethodGet, "/orders/admin/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestPaymentSessionConflict(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Notebook", 150, 10)
	admin := adminToken(t, "", middleware.PermissionOrders)

	var ids []string
	for i := 0; i < 2; i++ {
		token := userToken(t, primitive.NewObjectID())
		do(t, r, http.MethodPost, "/cart/add", token, gin.H{"productId": productID})
		_, body := do(t, r, http.MethodPost, "/orders/create", token, gin.H{
			"shippingAddress": testAddress,
			"paymentMethod":   "card",
		})
		ids = append(ids, body.Data["order"].(map[string]any)["id"].(string))
	}

	w, _ := do(t, r, http.MethodPut, "/orders/admin/"+ids[0]+"/payment-session", admin, gin.H{"sessionId": "cs_1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = do(t, r, http.MethodPut, "/orders/admin/"+ids[1]+"/payment-session", admin, gin.H{"sessionId": "cs_1"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReviewsUpdateProductRating(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Headphones", 9000, 3)

	for _, rating := range []int{4, 5} {
		token := userToken(t, primitive.NewObjectID())
		w, _ := do(t, r, http.MethodPost, "/reviews", token, gin.H{
			"productId": productID,
			"rating":    rating,
			"comment":   "solid sound",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, body := do(t, r, http.MethodGet, "/reviews/product/"+productID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := body.Data["stats"].(map[string]any)
	assert.Equal(t, 4.5, stats["averageRating"])
	assert.Equal(t, 2.0, stats["totalReviews"])

	_, body = do(t, r, http.MethodGet, "/products/"+productID, "", nil)
	product := body.Data["product"].(map[string]any)
	assert.Equal(t, 4.5, product["rating"])
	assert.Equal(t, 2.0, product["reviewCount"])

	w, _ = do(t, r, http.MethodPost, "/reviews", userToken(t, primitive.NewObjectID()), gin.H{
		"productId": productID,
		"rating":    6,
		"comment":   "too good",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWishlistRoutes(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Plant Pot", 700, 8)
	token := userToken(t, primitive.NewObjectID())

	w, _ := do(t, r, http.MethodPost, "/wishlist/add", token, gin.H{"productId": productID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = do(t, r, http.MethodPost, "/wishlist/add", token, gin.H{"productId": productID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body := do(t, r, http.MethodDelete, "/wishlist/remove/"+productID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body.Data["wishlist"].(map[string]any)["items"])
}

func TestProductListingAndDeactivation(t *testing.T) {
	r := newTestServer(t)
	first := createProduct(t, r, "Chair", 3000, 2)
	createProduct(t, r, "Table", 9000, 1)

	w, body := do(t, r, http.MethodGet, "/products?sort=price&limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body.Data["products"], 1)
	pagination := body.Data["pagination"].(map[string]any)
	assert.Equal(t, 2.0, pagination["total"])
	assert.Equal(t, 2.0, pagination["pages"])

	w, _ = do(t, r, http.MethodGet, "/products?sort=popularity", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/products/chair", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/products/"+first, adminToken(t, "", middleware.PermissionProducts), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/products/chair", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHugePageIsRejected(t *testing.T) {
	r := newTestServer(t)
	createProduct(t, r, "Stool", 1500, 1)

	for _, path := range []string{
		"/products?page=922337203685477580",
		"/orders/admin/all?page=922337203685477580&limit=100",
	} {
		w, body := do(t, r, http.MethodGet, path, adminToken(t, "", middleware.PermissionOrders), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.False(t, body.Success)
	}
}

func TestCategoryRoutes(t *testing.T) {
	r := newTestServer(t)
	admin := adminToken(t, "", middleware.PermissionProducts)

	w, _ := do(t, r, http.MethodPost, "/categories", adminToken(t, "", middleware.PermissionOrders), gin.H{"name": "Decor", "slug": "decor"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := do(t, r, http.MethodPost, "/categories", admin, gin.H{"name": "Decor", "slug": "decor", "sortOrder": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	parentID := body.Data["category"].(map[string]any)["id"].(string)

	w, _ = do(t, r, http.MethodPost, "/categories", admin, gin.H{"name": "Decor again", "slug": "decor"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = do(t, r, http.MethodPost, "/categories", admin, gin.H{"name": "Bad", "slug": "bad", "parentId": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, r, http.MethodPost, "/categories", admin, gin.H{"name": "Lost", "slug": "lost", "parentId": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(t, r, http.MethodPost, "/categories", admin, gin.H{"name": "Lamps", "slug": "lamps", "sortOrder": 1, "parentId": parentID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	childID := body.Data["category"].(map[string]any)["id"].(string)

	w, body = do(t, r, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := body.Data["categories"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "lamps", list[0].(map[string]any)["slug"])

	w, _ = do(t, r, http.MethodPut, "/categories/"+parentID, admin, gin.H{"parentId": parentID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/categories/"+parentID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = do(t, r, http.MethodPut, "/categories/"+childID, admin, gin.H{"parentId": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, body.Data["category"].(map[string]any)["parentId"])

	w, _ = do(t, r, http.MethodDelete, "/categories/"+parentID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/categories/decor", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodGet, "/categories/lamps", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductCategoryAndBrandLists(t *testing.T) {
	r := newTestServer(t)
	admin := adminToken(t, "", middleware.PermissionProducts)
	for _, p := range []gin.H{
		{"title": "Singing Bowl", "price": 4000, "brand": "Patan", "category": []string{"decor", "music"}},
		{"title": "Prayer Flag", "price": 300, "brand": "Boudha", "category": []string{"decor"}},
	} {
		w, _ := do(t, r, http.MethodPost, "/products", admin, p)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, body := do(t, r, http.MethodGet, "/products/categories/list", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"decor", "music"}, body.Data["categories"])

	w, body = do(t, r, http.MethodGet, "/products/brands/list", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Boudha", "Patan"}, body.Data["brands"])

	w, _ = do(t, r, http.MethodGet, "/products/singing-bowl", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWishlistCheck(t *testing.T) {
	r := newTestServer(t)
	productID := createProduct(t, r, "Incense", 150, 20)
	token := userToken(t, primitive.NewObjectID())

	w, body := do(t, r, http.MethodGet, "/wishlist/check/"+productID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body.Data["isInWishlist"])

	w, _ = do(t, r, http.MethodPost, "/wishlist/add", token, gin.H{"productId": productID})
	require.Equal(t, http.StatusOK, w.Code)
	_, body = do(t, r, http.MethodGet, "/wishlist/check/"+productID, token, nil)
	assert.Equal(t, true, body.Data["isInWishlist"])

	w, _ = do(t, r, http.MethodGet, "/wishlist/check/not-an-id", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, r, http.MethodGet, "/wishlist/check/"+productID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestServer(t)
	w, body := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
}

func TestRespondErrorHidesInternalDetailInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prev := config.AppEnv
	t.Cleanup(func() { config.AppEnv = prev })

	config.AppEnv.Env = "production"
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, "GET /test", errors.New("mongo: connection refused"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "mongo") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}

	config.AppEnv.Env = "development"
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, "GET /test", errors.New("mongo: connection refused"))
	if !strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("expected detail outside production, got %s", w.Body.String())
	}
}

func TestParsePaginationParams(t *testing.T) {
	page, err := parsePaginationParams("", "")
	if err != nil || page.Page != 1 || page.Limit != defaultPageLimit {
		t.Fatalf("unexpected defaults %+v, err=%v", page, err)
	}
	page, err = parsePaginationParams("3", "500")
	if err != nil || page.Page != 3 || page.Limit != maxPageLimit {
		t.Fatalf("expected capped limit, got %+v, err=%v", page, err)
	}
	page, err = parsePaginationParams("92233720368547759", "100")
	if err != nil || page.Skip() != 9223372036854775800 {
		t.Fatalf("expected largest addressable page, got %+v, err=%v", page, err)
	}
	for _, bad := range [][2]string{{"0", "10"}, {"x", ""}, {"1", "-5"}, {"922337203685477580", "20"}, {"92233720368547760", "100"}} {
		if _, err := parsePaginationParams(bad[0], bad[1]); err == nil {
			t.Fatalf("expected error for page=%q limit=%q", bad[0], bad[1])
		}
	}
}
