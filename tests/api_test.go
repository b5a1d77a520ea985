package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const baseURL = "http://localhost:8080"

// AuthResponse структура ответа при аутентификации
type AuthResponse struct {
	Token string `json:"token"`
}

type ProductResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
}

type CheckoutResponse struct {
	OrderID int64 `json:"order_id"`
}

type OrderSummaryResponse struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	TotalCents int64  `json:"total_cents"`
}

func registerUser(t *testing.T, fullName, email, password, role string) int {
	reqBody := []byte(fmt.Sprintf(
		`{"full_name": %q, "email": %q, "password": %q, "role": %q}`,
		fullName, email, password, role,
	))
	resp, err := http.Post(baseURL+"/api/register", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err, "register request should not error")
	defer resp.Body.Close()
	return resp.StatusCode
}

func authenticateUser(t *testing.T, email, password string) string {
	reqBody := []byte(`{"email": "` + email + `", "password": "` + password + `"}`)
	resp, err := http.Post(baseURL+"/api/auth", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err, "auth request should not error")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 OK for valid auth")

	var authResp AuthResponse
	err = json.NewDecoder(resp.Body).Decode(&authResp)
	assert.NoError(t, err, "decoding auth response should succeed")
	assert.NotEmpty(t, authResp.Token, "token should not be empty")
	return authResp.Token
}

// createProduct отправляет multipart-форму товара от имени продавца
func createProduct(t *testing.T, token, name string) ProductResponse {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fields := map[string]string{
		"name":        name,
		"brand":       "NapZon",
		"category":    "Sport",
		"price":       "49.99",
		"stock":       "10",
		"description": "e2e product",
	}
	for k, v := range fields {
		assert.NoError(t, mw.WriteField(k, v))
	}
	assert.NoError(t, mw.WriteField("sizes", "40"))
	assert.NoError(t, mw.WriteField("colors", "Black"))
	fw, err := mw.CreateFormFile("image", "shoe.png")
	assert.NoError(t, err)
	_, err = io.Copy(fw, bytes.NewReader([]byte("png-bytes")))
	assert.NoError(t, err)
	assert.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", baseURL+"/api/products", body)
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "expected 201 for product create")

	var product ProductResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&product))
	assert.NotZero(t, product.ID)
	return product
}

func sellerCredentials(t *testing.T) (string, string) {
	email := "seller@napzon.test"
	password := "sellerpass"
	// первый запуск создаёт продавца, повторные получают 409 — это нормально
	code := registerUser(t, "Shop Owner", email, password, "seller")
	assert.Contains(t, []int{http.StatusCreated, http.StatusConflict}, code)
	return email, password
}

// сценарий регистрации покупателя и входа
func TestRegisterAndAuth(t *testing.T) {
	email := fmt.Sprintf("buyer%d@napzon.test", time.Now().UnixNano())
	code := registerUser(t, "Test Buyer", email, "testpass123", "buyer")
	assert.Equal(t, http.StatusCreated, code)

	token := authenticateUser(t, email, "testpass123")
	assert.NotEmpty(t, token)
}

// сценарий с безуспешной аутентификацией пользователя
func TestAuthInvalid(t *testing.T) {
	reqBody := []byte(`{"email": "", "password": ""}`)
	resp, err := http.Post(baseURL+"/api/auth", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for invalid auth")
}

// второй продавец в системе не допускается
func TestSecondSellerRejected(t *testing.T) {
	sellerCredentials(t)
	code := registerUser(t, "Rival Seller", fmt.Sprintf("rival%d@napzon.test", time.Now().UnixNano()), "rivalpass", "seller")
	assert.Equal(t, http.StatusConflict, code, "only one seller is allowed")
}

// каталог продавца доступен только с токеном
func TestListProductsUnauthorized(t *testing.T) {
	req, err := http.NewRequest("GET", baseURL+"/api/products", nil)
	assert.NoError(t, err)
	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 for missing token")
}

// полный сценарий: продавец создаёт товар, покупатель оформляет заказ,
// продавец видит заказ и переводит его в shipped
func TestCheckoutFlow(t *testing.T) {
	sellerEmail, sellerPass := sellerCredentials(t)
	sellerToken := authenticateUser(t, sellerEmail, sellerPass)

	product := createProduct(t, sellerToken, fmt.Sprintf("Runner %d", time.Now().UnixNano()))

	buyerEmail := fmt.Sprintf("buyer%d@napzon.test", time.Now().UnixNano())
	assert.Equal(t, http.StatusCreated, registerUser(t, "Flow Buyer", buyerEmail, "buyerpass", "buyer"))
	buyerToken := authenticateUser(t, buyerEmail, "buyerpass")

	checkoutBody := []byte(fmt.Sprintf(`{"lines": [{"product_id": %d, "quantity": 2}]}`, product.ID))
	req, err := http.NewRequest("POST", baseURL+"/api/checkout", bytes.NewBuffer(checkoutBody))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+buyerToken)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "expected 201 for checkout")

	var checkout CheckoutResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&checkout))
	assert.NotZero(t, checkout.OrderID)

	// продавец видит заказ со стоимостью 2 * 49.99
	reqOrders, err := http.NewRequest("GET", baseURL+"/api/orders", nil)
	assert.NoError(t, err)
	reqOrders.Header.Set("Authorization", "Bearer "+sellerToken)
	respOrders, err := client.Do(reqOrders)
	assert.NoError(t, err)
	defer respOrders.Body.Close()
	assert.Equal(t, http.StatusOK, respOrders.StatusCode)

	var orders []OrderSummaryResponse
	assert.NoError(t, json.NewDecoder(respOrders.Body).Decode(&orders))
	var found bool
	for _, o := range orders {
		if o.ID == checkout.OrderID {
			found = true
			assert.Equal(t, "pending", o.Status)
			assert.Equal(t, int64(9998), o.TotalCents)
		}
	}
	assert.True(t, found, "seller should see the new order")

	// перевод заказа в shipped
	statusBody := []byte(`{"status": "shipped"}`)
	reqStatus, err := http.NewRequest("PATCH", fmt.Sprintf("%s/api/orders/%d/status", baseURL, checkout.OrderID), bytes.NewBuffer(statusBody))
	assert.NoError(t, err)
	reqStatus.Header.Set("Authorization", "Bearer "+sellerToken)
	reqStatus.Header.Set("Content-Type", "application/json")
	respStatus, err := client.Do(reqStatus)
	assert.NoError(t, err)
	defer respStatus.Body.Close()
	assert.Equal(t, http.StatusOK, respStatus.StatusCode, "expected 200 for status update")
}

// покупатель не может менять статус заказа
func TestSetStatusForbiddenForBuyer(t *testing.T) {
	buyerEmail := fmt.Sprintf("buyer%d@napzon.test", time.Now().UnixNano())
	assert.Equal(t, http.StatusCreated, registerUser(t, "Sneaky Buyer", buyerEmail, "buyerpass", "buyer"))
	buyerToken := authenticateUser(t, buyerEmail, "buyerpass")

	statusBody := []byte(`{"status": "delivered"}`)
	req, err := http.NewRequest("PATCH", baseURL+"/api/orders/1/status", bytes.NewBuffer(statusBody))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+buyerToken)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "buyer must not change order status")
}

// витрина и избранное доступны без токена
func TestShopBrowsePublic(t *testing.T) {
	resp, err := http.Get(baseURL + "/api/shop/products?q=runner")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	respFeatured, err := http.Get(baseURL + "/api/shop/featured")
	assert.NoError(t, err)
	defer respFeatured.Body.Close()
	assert.Equal(t, http.StatusOK, respFeatured.StatusCode)
}

// сценарий восстановления пароля
func TestPasswordResetFlow(t *testing.T) {
	email := fmt.Sprintf("reset%d@napzon.test", time.Now().UnixNano())
	assert.Equal(t, http.StatusCreated, registerUser(t, "Reset User", email, "oldpass123", "buyer"))

	reqBody := []byte(`{"email": "` + email + `"}`)
	resp, err := http.Post(baseURL+"/api/password/forgot", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var forgotResp struct {
		ResetToken string `json:"reset_token"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&forgotResp))
	assert.NotEmpty(t, forgotResp.ResetToken)

	resetBody := []byte(`{"token": "` + forgotResp.ResetToken + `", "password": "newpass123"}`)
	respReset, err := http.Post(baseURL+"/api/password/reset", "application/json", bytes.NewBuffer(resetBody))
	assert.NoError(t, err)
	defer respReset.Body.Close()
	assert.Equal(t, http.StatusOK, respReset.StatusCode)

	// старый пароль больше не работает, новый — работает
	badBody := []byte(`{"email": "` + email + `", "password": "oldpass123"}`)
	respBad, err := http.Post(baseURL+"/api/auth", "application/json", bytes.NewBuffer(badBody))
	assert.NoError(t, err)
	defer respBad.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, respBad.StatusCode)

	token := authenticateUser(t, email, "newpass123")
	assert.NotEmpty(t, token)
}
