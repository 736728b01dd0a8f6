package handler

import (
	"net/http"

	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AdminUserHandler struct {
	uc  *auth.SessionUsecase
	log *zap.Logger
}

func NewAdminUserHandler(uc *auth.SessionUsecase, log *zap.Logger) *AdminUserHandler {
	return &AdminUserHandler{uc: uc, log: log}
}

func (h *AdminUserHandler) RegisterRoutes(admin *echo.Group) {
	admin.POST("/users/:id/force-logout", h.ForceLogout)
}

// token_version を上げて全端末のアクセストークンを無効にする
func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	userID, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
