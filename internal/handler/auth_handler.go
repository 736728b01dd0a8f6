package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	refreshCookieName = "refresh"
	csrfCookieName    = "csrf_token"
)

type AuthHandler struct {
	registerUC   *auth.RegisterUserUsecase // 会員登録usecase
	loginUC      *auth.LoginUsecase        // ログインusecase
	sessionUC    *auth.SessionUsecase      // refresh / logout
	cookieSecure bool
	log          *zap.Logger
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	sessionUC *auth.SessionUsecase,
	cookieSecure bool,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		registerUC:   registerUC,
		loginUC:      loginUC,
		sessionUC:    sessionUC,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// LoginはPOST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// User-Agentを取得（refreshtokenに紐付ける）
	out, side, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		UserAgent:  c.Request().UserAgent(),
		RememberMe: req.RememberMe,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.setSessionCookies(c, side); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /auth/refresh。refresh cookie をローテーションする
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(refreshCookieName)
	if err != nil {
		return writeError(c, h.log, auth.ErrInvalidRefreshToken)
	}

	tok, side, err := h.sessionUC.Refresh(c.Request().Context(), auth.RefreshInput{
		RefreshToken: ck.Value,
		UserAgent:    c.Request().UserAgent(),
	})
	if err != nil {
		// 失効・replay のときは cookie も消す
		if errors.Is(err, auth.ErrInvalidRefreshToken) || errors.Is(err, auth.ErrSecurityIncident) {
			h.clearSessionCookies(c)
		}
		return writeError(c, h.log, err)
	}

	if err := h.setSessionCookies(c, side); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, tok)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	ck, err := c.Cookie(refreshCookieName)
	if err != nil {
		h.clearSessionCookies(c)
		return c.NoContent(http.StatusNoContent)
	}

	err = h.sessionUC.Logout(c.Request().Context(), ck.Value)
	h.clearSessionCookies(c)
	if err != nil && !errors.Is(err, auth.ErrInvalidRefreshToken) {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// refresh cookie と csrf cookie をセット。
// remember me なしなら Expires を付けない（ブラウザを閉じたら消える）
func (h *AuthHandler) setSessionCookies(c echo.Context, side auth.RefreshCookie) error {
	csrfToken, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	var exp time.Time
	if side.Persistent {
		exp = side.ExpiresAt
	}

	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    side.PlainRefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    csrfToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	return nil
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	for _, name := range []string{refreshCookieName, csrfCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: name == refreshCookieName,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// ランダム文字列を作る。
func generateSecureToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 32
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
