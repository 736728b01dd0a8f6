package handler

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// /products, /categories の公開API
type ProductHandler struct {
	products   *usecase.ProductUsecase
	categories *usecase.CategoryUsecase
	log        *zap.Logger
}

// DI
func NewProductHandler(products *usecase.ProductUsecase, categories *usecase.CategoryUsecase, log *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, categories: categories, log: log}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/featured", h.featured)
	e.GET("/products/:id", h.detail)
	e.GET("/categories", h.listCategories)
}

func (h *ProductHandler) list(c echo.Context) error {
	in := usecase.ListProductsInput{
		Name:       c.QueryParam("name"),
		SortingKey: c.QueryParam("sorting_key"),
	}

	// 数字でないページは1ページ目
	if v := c.QueryParam("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			in.Page = p
		}
	}
	if in.Page == 0 {
		in.Page = 1
	}

	var err error
	if in.MinPrice, err = decimalQuery(c, "min_price"); err != nil {
		return badRequest(c, "invalid min_price")
	}
	if in.MaxPrice, err = decimalQuery(c, "max_price"); err != nil {
		return badRequest(c, "invalid max_price")
	}
	if in.CategoryIDs, err = idsQuery(c, "categories"); err != nil {
		return badRequest(c, "invalid categories")
	}

	out, err := h.products.ListProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) featured(c echo.Context) error {
	out, err := h.products.ListFeatured(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, err := h.products.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) listCategories(c echo.Context) error {
	out, err := h.categories.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func decimalQuery(c echo.Context, key string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(c.QueryParam(key))
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// categories=1,2 と categories=1&categories=2 の両方を受ける
func idsQuery(c echo.Context, key string) ([]int64, error) {
	var ids []int64
	for _, raw := range c.QueryParams()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
