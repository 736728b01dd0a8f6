package auth

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	// trueなら長期のrefresh token。falseならブラウザを閉じるまで
	RememberMe bool
}

// handlerがJSONにして返す
type LoginOutput struct {
	User  UserDTO        `json:"user"`
	Token JwtAccessToken `json:"token"`
}

type LoginUsecase struct {
	userRepo  repository.UserRepository
	rtRepo    repository.RefreshTokenRepository
	validator InputValidator
	verifier  PasswordVerifier
	issuer    AccessTokenIssuer
	idGen     IDGenerator
	clock     Clock
	ttl       RefreshTTL
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	validator InputValidator,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	ttl RefreshTTL,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo:  userRepo,
		rtRepo:    rtRepo,
		validator: validator,
		verifier:  verifier,
		issuer:    issuer,
		idGen:     idGen,
		clock:     clock,
		ttl:       ttl,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, RefreshCookie, error) {
	var out LoginOutput
	var side RefreshCookie

	if err := u.validator.ValidateLogin(in.Email, in.Password); err != nil {
		return out, side, err
	}

	//emailでユーザー取得
	user, err := u.userRepo.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, side, ErrInvalidCredentials
		}
		return out, side, err
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, side, ErrInvalidCredentials
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	now := u.clock.Now()
	accessToken, accessExp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return out, side, err
	}

	plainRefresh, refreshHash, err := newRefreshToken()
	if err != nil {
		return out, side, err
	}

	expiresAt := now.Add(u.ttl.For(in.RememberMe))
	if err := u.rtRepo.Create(ctx, &model.RefreshToken{
		ID:         u.idGen.NewID(),
		UserID:     user.ID,
		TokenHash:  refreshHash,
		UserAgent:  in.UserAgent,
		Persistent: in.RememberMe,
		ExpiresAt:  expiresAt,
	}); err != nil {
		return out, side, err
	}

	//最終ログイン時刻更新
	user.LastLoginAt = &now
	if err := u.userRepo.Update(ctx, user); err != nil {
		return out, side, err
	}

	out.User = toUserDTO(user)
	out.Token = JwtAccessToken{
		AccessToken:  accessToken,
		ExpiresIn:    int(accessExp.Sub(now).Seconds()),
		TokenVersion: user.TokenVersion,
	}

	side = RefreshCookie{
		PlainRefreshToken: plainRefresh,
		ExpiresAt:         expiresAt,
		Persistent:        in.RememberMe,
	}
	return out, side, nil
}
