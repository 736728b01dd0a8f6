package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/notifier"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/token"
	"storefront/internal/server"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const userAgent = "storefront-test"

type testApp struct {
	e  *echo.Echo
	db *gorm.DB
}

// main と同じ組み立てを sqlite で行う
func newTestApp(t *testing.T) testApp {
	t.Helper()

	gdb, err := db.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := zap.NewNop()
	userRepo := infraRepo.NewUserGormRepository(gdb)
	rtRepo := infraRepo.NewRefreshTokenRepository(gdb)
	carts := infraRepo.NewCartGormRepository(gdb)
	products := infraRepo.NewProductGormRepository(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)
	clock := usecase.SystemClock{}

	jwtManager := token.NewJWTManager("test-secret", 15*time.Minute)
	v := validator.NewAuthValidator()
	ttl := auth.RefreshTTL{Persistent: 14 * 24 * time.Hour, Session: 24 * time.Hour}

	registerUC := auth.NewRegisterUserUsecase(userRepo, v, auth.NewBcryptPasswordHasher(bcrypt.MinCost), auth.SystemClock{})
	loginUC := auth.NewLoginUsecase(userRepo, rtRepo, v, auth.NewBcryptPasswordVerifier(), jwtManager, auth.UUIDGenerator{}, auth.SystemClock{}, ttl)
	sessionUC := auth.NewSessionUsecase(userRepo, rtRepo, v, jwtManager, auth.UUIDGenerator{}, auth.SystemClock{}, ttl)

	productUC := usecase.NewProductUsecase(products, txm, clock)
	categoryUC := usecase.NewCategoryUsecase(infraRepo.NewCategoryGormRepository(gdb), txm, clock)

	h := server.Handlers{
		Auth:         handler.NewAuthHandler(registerUC, loginUC, sessionUC, false, log),
		Product:      handler.NewProductHandler(productUC, categoryUC, log),
		Cart:         handler.NewCartHandler(usecase.NewCartUsecase(carts, carts, products, clock), log),
		Order:        handler.NewOrderHandler(usecase.NewOrderUsecase(txm, usecase.NewTimestampOrderIDGenerator(), clock, notifier.NewLogNotifier(log), log), log),
		AdminProduct: handler.NewAdminProductHandler(productUC, categoryUC, usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gdb)), log),
		AdminOrder:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm, clock), log),
		AdminUser:    handler.NewAdminUserHandler(sessionUC, log),
	}

	return testApp{e: server.New(h, jwtManager, userRepo, log), db: gdb}
}

func (a testApp) do(t *testing.T, method, path, bearer string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", userAgent)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst), rec.Body.String())
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type loginBody struct {
	User  auth.UserDTO        `json:"user"`
	Token auth.JwtAccessToken `json:"token"`
}

// 登録してログインし、アクセストークンと refresh cookie を返す
func (a testApp) signup(t *testing.T, email string, rememberMe bool) (loginBody, *http.Cookie) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": email, "password": "correct-horse-1", "password_confirm": "correct-horse-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return a.login(t, email, rememberMe)
}

func (a testApp) login(t *testing.T, email string, rememberMe bool) (loginBody, *http.Cookie) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": email, "password": "correct-horse-1", "remember_me": rememberMe,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out loginBody
	refresh := cookieNamed(rec, "refresh")
	decode(t, rec, &out)
	require.NotNil(t, refresh)
	return out, refresh
}

func seedProduct(t *testing.T, gdb *gorm.DB, name, price string) model.Product {
	t.Helper()
	p := model.Product{Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, gdb.Omit("Categories").Create(&p).Error)
	return p
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	app := newTestApp(t)

	// 認証グループの外にある未知のパスは401ではなく404
	for _, path := range []string{"/nope", "/products/1/extra", "/cartx"} {
		rec := app.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	// グループ配下は認証が先
	rec := app.do(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	mug := seedProduct(t, app.db, "Mug", "19.99")
	tee := seedProduct(t, app.db, "Tee", "5.00")

	user, _ := app.signup(t, "alice@example.com", false)
	tok := user.Token.AccessToken

	// 未ログインは401
	rec := app.do(t, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": mug.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cart usecase.CartView
	decode(t, rec, &cart)
	assert.Equal(t, "59.97", cart.Total.StringFixed(2))

	rec = app.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": mug.ID, "quantity": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": tee.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &cart)
	require.Len(t, cart.Lines, 2)

	teeLine := cart.Lines[1].ID
	rec = app.do(t, http.MethodPatch, fmt.Sprintf("/cart/%d", teeLine), tok, map[string]any{"quantity": 1.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(t, http.MethodPatch, fmt.Sprintf("/cart/%d", teeLine), tok, map[string]any{"quantity": 10000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodDelete, fmt.Sprintf("/cart/%d", teeLine), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/orders", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order usecase.OrderOutput
	decode(t, rec, &order)
	assert.Equal(t, "59.97", order.Total.StringFixed(2))
	assert.Equal(t, "PENDING", order.Status)

	// カートは空
	rec = app.do(t, http.MethodPost, "/orders", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/orders", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []usecase.OrderOutput
	decode(t, rec, &mine)
	require.Len(t, mine, 1)

	rec = app.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/cancel", order.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &order)
	assert.Equal(t, "CANCELLED", order.Status)

	rec = app.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/cancel", order.ID), tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 他人の注文は404
	bob, _ := app.signup(t, "bob@example.com", false)
	rec = app.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), bob.Token.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductListing(t *testing.T) {
	app := newTestApp(t)
	for i := 1; i <= 20; i++ {
		seedProduct(t, app.db, fmt.Sprintf("P%02d", i), fmt.Sprintf("%d.00", i))
	}

	var page usecase.ProductPage
	rec := app.do(t, http.MethodGet, "/products?page=abc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 16)

	rec = app.do(t, http.MethodGet, "/products?page=50", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 4)

	rec = app.do(t, http.MethodGet, "/products?min_price=5&max_price=7&sorting_key=price_desc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "P07", page.Items[0].Name)

	rec = app.do(t, http.MethodGet, "/products?min_price=9&max_price=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(t, http.MethodGet, "/products?min_price=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/products/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminFlow(t *testing.T) {
	app := newTestApp(t)
	user, _ := app.signup(t, "alice@example.com", false)

	rec := app.do(t, http.MethodGet, "/admin/orders", user.Token.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, _ = app.signup(t, "admin@example.com", false)
	require.NoError(t, app.db.Model(&model.User{}).Where("email = ?", "admin@example.com").Update("role", model.RoleAdmin).Error)
	admin, _ := app.login(t, "admin@example.com", false)
	tok := admin.Token.AccessToken

	rec = app.do(t, http.MethodPost, "/admin/categories", tok, map[string]any{"name": "Kitchen"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat model.Category
	decode(t, rec, &cat)

	rec = app.do(t, http.MethodPost, "/admin/products", tok, map[string]any{
		"name": "Mug", "price": "19.99", "category_ids": []int64{cat.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p model.Product
	decode(t, rec, &p)

	rec = app.do(t, http.MethodPost, "/admin/products", tok, map[string]any{"name": "Bad", "price": "1.999"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// ユーザーが注文した商品は消せない
	app.do(t, http.MethodPost, "/cart", user.Token.AccessToken, map[string]any{"product_id": p.ID, "quantity": 1})
	rec = app.do(t, http.MethodPost, "/orders", user.Token.AccessToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var order usecase.OrderOutput
	decode(t, rec, &order)

	rec = app.do(t, http.MethodDelete, fmt.Sprintf("/admin/products/%d", p.ID), tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID), tok, map[string]any{"status": "SHIPPED"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = app.do(t, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID), tok, map[string]any{"status": "PAID"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/admin/orders?status=PAID", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders usecase.AdminOrderPage
	decode(t, rec, &orders)
	assert.Equal(t, int64(1), orders.Total)

	rec = app.do(t, http.MethodGet, "/admin/audit-logs?resource_type=order", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var audits usecase.AuditLogPage
	decode(t, rec, &audits)
	require.Len(t, audits.Items, 1)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, audits.Items[0].Action)

	// 強制ログアウト後は古いトークンが使えない
	rec = app.do(t, http.MethodPost, fmt.Sprintf("/admin/users/%d/force-logout", user.User.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodGet, "/cart", user.Token.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/admin/users/9999/force-logout", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	app := newTestApp(t)

	_, session := app.signup(t, "alice@example.com", false)
	assert.True(t, session.Expires.IsZero(), "remember me なしはセッションcookie")
	assert.True(t, session.HttpOnly)

	_, persistent := app.login(t, "alice@example.com", true)
	assert.False(t, persistent.Expires.IsZero())

	rec := app.do(t, http.MethodPost, "/auth/refresh", "", nil, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := cookieNamed(rec, "refresh")
	require.NotNil(t, rotated)
	assert.NotEqual(t, session.Value, rotated.Value)

	var tok auth.JwtAccessToken
	decode(t, rec, &tok)
	assert.NotEmpty(t, tok.AccessToken)

	// 使用済みを再利用したら全部無効
	rec = app.do(t, http.MethodPost, "/auth/refresh", "", nil, session)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = app.do(t, http.MethodPost, "/auth/refresh", "", nil, persistent)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, fresh := app.login(t, "alice@example.com", false)
	rec = app.do(t, http.MethodPost, "/auth/logout", "", nil, fresh)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodPost, "/auth/refresh", "", nil, fresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStart_StopsOnCancel(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Start(ctx, app.e, "127.0.0.1:0", zap.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
