package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"

	"github.com/google/uuid"
)

var (
	// メールまたはパスワードが違う
	ErrInvalidCredentials = errors.New("invalid credentials")

	// 停止済みユーザー
	ErrUserInactive = errors.New("user is inactive")

	// 競合
	ErrEmailAlreadyExists = errors.New("email already exists")

	ErrWeakPassword = errors.New("weak password")

	// refresh tokenが無い・期限切れ・失効済み
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// 使用済みrefresh tokenの再利用。そのユーザーのセッションは全部消す
	ErrSecurityIncident = errors.New("security incident")
)

// 入力検証の約束（validatorパッケージが実装）
type InputValidator interface {
	ValidateRegister(email, password, passwordConfirm string) error
	ValidateLogin(email, password string) error
	ValidateRefresh(refreshToken string) error
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// refresh tokenの寿命。remember me ならPersistent、そうでなければSession
type RefreshTTL struct {
	Persistent time.Duration
	Session    time.Duration
}

func (t RefreshTTL) For(persistent bool) time.Duration {
	if persistent {
		return t.Persistent
	}
	return t.Session
}

type UserDTO struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	TokenVersion int        `json:"token_version"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
	}
}

// token 形（JwtAccessToken相当）
type JwtAccessToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

// handlerがCookieに詰めるために必要な値
type RefreshCookie struct {
	PlainRefreshToken string
	ExpiresAt         time.Time
	// falseならブラウザセッションCookie（Expiresを付けない）
	Persistent bool
}

// refresh token生成（平文 + DB保存hash）
func newRefreshToken() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("refresh token: %w", err)
	}
	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashToken(plain), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
