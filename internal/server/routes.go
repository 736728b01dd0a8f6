package server

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handlers はルーティングに載せるハンドラ一式
type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	AdminProduct *handler.AdminProductHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminUser    *handler.AdminUserHandler
}

// RegisterRoutes は公開 / ログイン必須 / ADMIN限定 の3つに分けて登録する
func RegisterRoutes(
	e *echo.Echo,
	h Handlers,
	parser middleware.AccessTokenParser,
	userRepo repository.UserRepository,
	log *zap.Logger,
) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})

	// 公開
	h.Auth.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)

	// JWT必須 + token_version一致
	// 空のprefixだと未知のパスまで401になるので、prefixごとにグループを切る
	userOnly := []echo.MiddlewareFunc{
		middleware.AuthJWT(parser),
		middleware.TokenVersionGuard(userRepo, log),
	}
	h.Cart.RegisterRoutes(e.Group("/cart", userOnly...))
	h.Order.RegisterRoutes(e.Group("/orders", userOnly...))

	// /admin 配下は ADMIN 限定
	admin := e.Group("/admin",
		middleware.AuthJWT(parser),
		middleware.TokenVersionGuard(userRepo, log),
		middleware.AdminRoleGuard(),
	)
	h.AdminProduct.RegisterRoutes(admin)
	h.AdminOrder.RegisterRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
}
