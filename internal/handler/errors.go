package handler

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// 業務エラー → HTTPステータス。上から順に errors.Is で判定する
var errorStatuses = []struct {
	err    error
	status int
}{
	{usecase.ErrNotFound, http.StatusNotFound},
	{repository.ErrUserNotFound, http.StatusNotFound},

	{usecase.ErrAlreadyInCart, http.StatusConflict},
	{usecase.ErrDuplicateOrderID, http.StatusConflict},
	{usecase.ErrProductInUse, http.StatusConflict},
	{usecase.ErrInvalidStatusTransition, http.StatusConflict},
	{auth.ErrEmailAlreadyExists, http.StatusConflict},

	{usecase.ErrInvalidQuantity, http.StatusBadRequest},
	{usecase.ErrInvalidFilter, http.StatusBadRequest},
	{usecase.ErrInvalidInput, http.StatusBadRequest},
	{usecase.ErrEmptyOrMissingCart, http.StatusBadRequest},
	{validator.ErrInvalidInput, http.StatusBadRequest},
	{validator.ErrPasswordMismatch, http.StatusBadRequest},
	{auth.ErrWeakPassword, http.StatusBadRequest},

	{usecase.ErrUnauthorized, http.StatusUnauthorized},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized},
	{auth.ErrSecurityIncident, http.StatusUnauthorized},

	{auth.ErrUserInactive, http.StatusForbidden},
}

// writeError は業務エラーをJSONにする。知らないエラーは500にしてログに残す
func writeError(c echo.Context, log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}

	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return c.JSON(es.status, ErrorResponse{Error: err.Error()})
		}
	}

	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Int64("user_id", middleware.UserID(c)),
		zap.Error(err),
	)
	if errors.Is(err, usecase.ErrTransactionFailure) {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// :id を正の整数として読む
func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
