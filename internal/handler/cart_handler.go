package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /cartのHTTP
type CartHandler struct {
	uc  *usecase.CartUsecase
	log *zap.Logger
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, log *zap.Logger) *CartHandler {
	return &CartHandler{uc: uc, log: log}
}

// 数量は整数以外なら ErrInvalidQuantity にしたいので生のJSONで受ける
type AddCartRequest struct {
	ProductID int64       `json:"product_id"`
	Quantity  interface{} `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity interface{} `json:"quantity"`
}

// /cart, /cart/:id を登録（g は /cart の認証済みグループ）
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.getCart)
	g.POST("", h.addToCart)
	g.PATCH("/:id", h.patchItem)
	g.DELETE("/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// 省略時は1個
	qty := int64(1)
	if req.Quantity != nil {
		q, ok := wholeNumber(req.Quantity)
		if !ok {
			return writeError(c, h.log, usecase.ErrInvalidQuantity)
		}
		qty = q
	}

	out, err := h.uc.AddLine(c.Request().Context(), middleware.UserID(c), usecase.AddLineInput{
		ProductID: req.ProductID,
		Quantity:  qty,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	lineID, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	qty, ok := wholeNumber(req.Quantity)
	if !ok {
		return writeError(c, h.log, usecase.ErrInvalidQuantity)
	}

	out, err := h.uc.UpdateLineQuantity(c.Request().Context(), middleware.UserID(c), lineID, qty)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	lineID, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.RemoveLine(c.Request().Context(), middleware.UserID(c), lineID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// JSONの数値は float64 で来る。小数・文字列は不可
func wholeNumber(v interface{}) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
