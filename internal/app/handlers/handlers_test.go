package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/napzon/napzon-shop/internal/access"
	"github.com/napzon/napzon-shop/internal/app/handlers"
	"github.com/napzon/napzon-shop/internal/domain/models"
	"github.com/napzon/napzon-shop/internal/jwt-new/jwtmiddleware"
	"github.com/napzon/napzon-shop/internal/service"
	"github.com/napzon/napzon-shop/internal/storage"
	"github.com/napzon/napzon-shop/internal/upload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// fakeAuthService — фиктивная реализация для тестирования.
type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) Register(ctx context.Context, req service.RegisterRequest) error {
	return f.err
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, token, password string) error {
	return f.err
}

// fakeCatalogService запоминает, что ему передали
type fakeCatalogService struct {
	product  *models.Product
	products []*models.Product
	err      error

	gotInput service.ProductInput
	gotImage service.ImageUpload
}

func (f *fakeCatalogService) CreateProduct(ctx context.Context, actor access.Actor, input service.ProductInput, image service.ImageUpload) (*models.Product, error) {
	f.gotInput = input
	f.gotImage = image
	return f.product, f.err
}

func (f *fakeCatalogService) UpdateProduct(ctx context.Context, actor access.Actor, productID int64, input service.ProductInput, image service.ImageUpload) error {
	f.gotInput = input
	f.gotImage = image
	return f.err
}

func (f *fakeCatalogService) DeleteProduct(ctx context.Context, actor access.Actor, productID int64) error {
	return f.err
}

func (f *fakeCatalogService) ListProducts(ctx context.Context, actor access.Actor) ([]*models.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalogService) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalogService) FeaturedProducts(ctx context.Context) ([]*models.Product, error) {
	return f.products, f.err
}

type fakeOrderService struct {
	orders  []*models.OrderSummary
	orderID int64
	err     error

	gotFilter storage.OrderFilter
	gotStatus models.OrderStatus
}

func (f *fakeOrderService) ListOrders(ctx context.Context, actor access.Actor, filter storage.OrderFilter) ([]*models.OrderSummary, error) {
	f.gotFilter = filter
	return f.orders, f.err
}

func (f *fakeOrderService) SetStatus(ctx context.Context, actor access.Actor, orderID int64, status models.OrderStatus) error {
	f.gotStatus = status
	return f.err
}

func (f *fakeOrderService) PlaceOrder(ctx context.Context, actor access.Actor, lines []service.OrderLine) (int64, error) {
	return f.orderID, f.err
}

func withActor(req *http.Request, actor access.Actor) *http.Request {
	ctx := context.WithValue(req.Context(), jwtmiddleware.ActorKey, actor)
	return req.WithContext(ctx)
}

var sellerActor = access.Actor{ID: 1, Role: models.RoleSeller}

func TestRegisterHandler_Success(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{})

	reqBody := `{"full_name": "Sole Seller", "email": "s@example.com", "password": "password123", "role": "seller"}`
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestRegisterHandler_SecondSeller(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{err: storage.ErrSellerExists})

	reqBody := `{"full_name": "Rival", "email": "r@example.com", "password": "password123", "role": "seller"}`
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code, "second seller must be rejected")
}

func TestRegisterHandler_BadRole(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{})

	reqBody := `{"full_name": "X", "email": "x@example.com", "password": "password123", "role": "admin"}`
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_Success(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{token: "test-token"})

	reqBody := `{"email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.AuthResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "test-token", resp.Token)
}

func TestAuthHandler_InvalidCredentials(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{err: service.ErrInvalidCredentials})

	reqBody := `{"email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// multipartProduct собирает multipart-форму товара, опционально с файлом.
func multipartProduct(t *testing.T, withImage bool, filename string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fields := map[string]string{
		"name":        "Runner X",
		"brand":       "NapZon",
		"category":    "Sport",
		"price":       "49.99",
		"stock":       "10",
		"description": "light road shoe",
	}
	for k, v := range fields {
		assert.NoError(t, mw.WriteField(k, v))
	}
	assert.NoError(t, mw.WriteField("sizes", "40"))
	assert.NoError(t, mw.WriteField("sizes", "41"))
	assert.NoError(t, mw.WriteField("colors", "Black"))
	if withImage {
		fw, err := mw.CreateFormFile("image", filename)
		assert.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader([]byte("fake image bytes")))
		assert.NoError(t, err)
	}
	assert.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestCreateProductHandler_Success(t *testing.T) {
	fakeSvc := &fakeCatalogService{product: &models.Product{ID: 5, SellerID: 1, Name: "Runner X"}}
	images := upload.NewStore(t.TempDir())
	handler := handlers.CreateProductHandler(testLogger(), fakeSvc, images)

	body, contentType := multipartProduct(t, true, "shoe.png")
	req := httptest.NewRequest("POST", "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusCreated, rr.Code)

	// Поля формы дошли до сервиса, изображение сохранено и получило ссылку.
	assert.Equal(t, "Runner X", fakeSvc.gotInput.Name)
	assert.Equal(t, []string{"40", "41"}, fakeSvc.gotInput.Sizes)
	assert.NoError(t, fakeSvc.gotImage.Err)
	assert.NotEmpty(t, fakeSvc.gotImage.Ref)
}

func TestCreateProductHandler_BadImageType(t *testing.T) {
	fakeSvc := &fakeCatalogService{err: service.ErrUploadFailed}
	images := upload.NewStore(t.TempDir())
	handler := handlers.CreateProductHandler(testLogger(), fakeSvc, images)

	body, contentType := multipartProduct(t, true, "shoe.gif")
	req := httptest.NewRequest("POST", "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	// Ошибка загрузки типизирована и передана сервису.
	assert.ErrorIs(t, fakeSvc.gotImage.Err, upload.ErrBadType)
}

func TestCreateProductHandler_RejectedUploadRemoved(t *testing.T) {
	fakeSvc := &fakeCatalogService{err: service.ErrValidation}
	dir := t.TempDir()
	handler := handlers.CreateProductHandler(testLogger(), fakeSvc, upload.NewStore(dir))

	body, contentType := multipartProduct(t, true, "shoe.png")
	req := httptest.NewRequest("POST", "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Файл успел сохраниться до отказа сервиса и должен быть убран.
	assert.NotEmpty(t, fakeSvc.gotImage.Ref)
	_, statErr := os.Stat(fakeSvc.gotImage.Ref)
	assert.True(t, os.IsNotExist(statErr), "rejected upload must not stay on disk")

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateProductHandler_NoActor(t *testing.T) {
	handler := handlers.CreateProductHandler(testLogger(), &fakeCatalogService{}, upload.NewStore(t.TempDir()))

	body, contentType := multipartProduct(t, true, "shoe.png")
	req := httptest.NewRequest("POST", "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateProductHandler_NoImageKeepsExisting(t *testing.T) {
	fakeSvc := &fakeCatalogService{}
	images := upload.NewStore(t.TempDir())
	handler := handlers.UpdateProductHandler(testLogger(), fakeSvc, images)

	body, contentType := multipartProduct(t, false, "")
	req := httptest.NewRequest("PUT", "/api/products/5", body)
	req.Header.Set("Content-Type", contentType)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "5")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusOK, rr.Code)
	// Нет файла — в сервис уходит пустая ссылка без ошибки (прежняя сохранится).
	assert.NoError(t, fakeSvc.gotImage.Err)
	assert.Empty(t, fakeSvc.gotImage.Ref)
}

func TestDeleteProductHandler_NotOwner(t *testing.T) {
	handler := handlers.DeleteProductHandler(testLogger(), &fakeCatalogService{err: storage.ErrProductNotFound})

	req := httptest.NewRequest("DELETE", "/api/products/5", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "5")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusNotFound, rr.Code, "combined not-found-or-not-owner maps to 404")
}

func TestListOrdersHandler_Filters(t *testing.T) {
	fakeSvc := &fakeOrderService{orders: []*models.OrderSummary{{ID: 11, TotalCents: 9998}}}
	handler := handlers.ListOrdersHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("GET", "/api/orders?status=shipped&date=2026-08-30&search=jane", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.StatusShipped, fakeSvc.gotFilter.Status)
	assert.Equal(t, "2026-08-30", fakeSvc.gotFilter.Date)
	assert.Equal(t, "jane", fakeSvc.gotFilter.Search)
}

func TestListOrdersHandler_EmptyList(t *testing.T) {
	handler := handlers.ListOrdersHandler(testLogger(), &fakeOrderService{})

	req := httptest.NewRequest("GET", "/api/orders", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestSetStatusHandler_Success(t *testing.T) {
	fakeSvc := &fakeOrderService{}
	handler := handlers.SetStatusHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("PATCH", "/api/orders/11/status", bytes.NewBufferString(`{"status": "shipped"}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "11")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, sellerActor))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.StatusShipped, fakeSvc.gotStatus)
}

func TestSetStatusHandler_WrongRole(t *testing.T) {
	handler := handlers.SetStatusHandler(testLogger(), &fakeOrderService{err: access.ErrWrongRole})

	req := httptest.NewRequest("PATCH", "/api/orders/11/status", bytes.NewBufferString(`{"status": "shipped"}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "11")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, access.Actor{ID: 4, Role: models.RoleBuyer}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCheckoutHandler_Success(t *testing.T) {
	handler := handlers.CheckoutHandler(testLogger(), &fakeOrderService{orderID: 42})

	reqBody := `{"lines": [{"product_id": 9, "quantity": 2}]}`
	req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, withActor(req, access.Actor{ID: 4, Role: models.RoleBuyer}))
	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp handlers.CheckoutResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.OrderID)
}
