package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 商品の作成・更新。price は "19.99" でも 19.99 でも受ける
type ProductRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image"`
	Description *string         `json:"description"`
	Featured    bool            `json:"featured"`
	CategoryIDs []int64         `json:"category_ids"`
}

func (r ProductRequest) input() usecase.ProductInput {
	return usecase.ProductInput{
		Name:        r.Name,
		Price:       r.Price,
		Image:       r.Image,
		Description: r.Description,
		Featured:    r.Featured,
		CategoryIDs: r.CategoryIDs,
	}
}

type CategoryRequest struct {
	Name string `json:"name"`
}

// /admin/products, /admin/categories, /admin/audit-logs をまとめる
type AdminProductHandler struct {
	products   *usecase.ProductUsecase
	categories *usecase.CategoryUsecase
	audits     *usecase.AuditLogUsecase
	log        *zap.Logger
}

// DI
func NewAdminProductHandler(
	products *usecase.ProductUsecase,
	categories *usecase.CategoryUsecase,
	audits *usecase.AuditLogUsecase,
	log *zap.Logger,
) *AdminProductHandler {
	return &AdminProductHandler{products: products, categories: categories, audits: audits, log: log}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(admin *echo.Group) {
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)

	admin.POST("/categories", h.createCategory)
	admin.PUT("/categories/:id", h.renameCategory)
	admin.DELETE("/categories/:id", h.deleteCategory)

	admin.GET("/audit-logs", h.listAuditLogs)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.products.CreateProduct(c.Request().Context(), middleware.UserID(c), req.input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.products.UpdateProduct(c.Request().Context(), middleware.UserID(c), id, req.input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.products.DeleteProduct(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) createCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	cat, err := h.categories.CreateCategory(c.Request().Context(), middleware.UserID(c), req.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminProductHandler) renameCategory(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	cat, err := h.categories.RenameCategory(c.Request().Context(), middleware.UserID(c), id, req.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminProductHandler) deleteCategory(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.categories.DeleteCategory(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) listAuditLogs(c echo.Context) error {
	var f repository.AuditLogFilter

	if v := c.QueryParam("actor_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid actor_user_id")
		}
		f.ActorUserID = &id
	}
	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid resource_id")
		}
		f.ResourceID = &id
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid limit")
		}
		f.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid offset")
		}
		f.Offset = o
	}

	var err error
	if f.CreatedFrom, err = usecase.ParseDateTimeRFC3339(c.QueryParam("from")); err != nil {
		return writeError(c, h.log, err)
	}
	if f.CreatedTo, err = usecase.ParseDateTimeRFC3339(c.QueryParam("to")); err != nil {
		return writeError(c, h.log, err)
	}

	out, err := h.audits.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
