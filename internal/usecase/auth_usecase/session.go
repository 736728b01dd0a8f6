package auth

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

type RefreshInput struct {
	RefreshToken string
	UserAgent    string
}

type ForceLogoutOutput struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

// refresh tokenのローテーションとログアウト
type SessionUsecase struct {
	userRepo  repository.UserRepository
	rtRepo    repository.RefreshTokenRepository
	validator InputValidator
	issuer    AccessTokenIssuer
	idGen     IDGenerator
	clock     Clock
	ttl       RefreshTTL
}

func NewSessionUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	validator InputValidator,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	ttl RefreshTTL,
) *SessionUsecase {
	return &SessionUsecase{
		userRepo:  userRepo,
		rtRepo:    rtRepo,
		validator: validator,
		issuer:    issuer,
		idGen:     idGen,
		clock:     clock,
		ttl:       ttl,
	}
}

// Refresh は古いrefresh tokenを使用済みにして新しいものを返す。
// 使用済みが来たらreplayとみなしてそのユーザーのtokenを全部消す。
func (u *SessionUsecase) Refresh(ctx context.Context, in RefreshInput) (JwtAccessToken, RefreshCookie, error) {
	var side RefreshCookie

	if err := u.validator.ValidateRefresh(in.RefreshToken); err != nil {
		return JwtAccessToken{}, side, ErrInvalidRefreshToken
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(in.RefreshToken))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return JwtAccessToken{}, side, ErrInvalidRefreshToken
	}
	if err != nil {
		return JwtAccessToken{}, side, err
	}

	now := u.clock.Now()

	//期限切れ
	if !rt.ExpiresAt.After(now) {
		_ = u.rtRepo.DeleteByID(ctx, rt.ID)
		return JwtAccessToken{}, side, ErrInvalidRefreshToken
	}
	if rt.RevokedAt != nil {
		return JwtAccessToken{}, side, ErrInvalidRefreshToken
	}

	//used済みが来たら replay → 全削除
	if rt.UsedAt != nil {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return JwtAccessToken{}, side, ErrSecurityIncident
	}

	// user_agent違い（再認証扱い。全削除）
	if in.UserAgent != "" && rt.UserAgent != "" && in.UserAgent != rt.UserAgent {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return JwtAccessToken{}, side, ErrSecurityIncident
	}

	user, err := u.userRepo.FindByID(ctx, rt.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return JwtAccessToken{}, side, ErrInvalidRefreshToken
	}
	if err != nil {
		return JwtAccessToken{}, side, err
	}
	if !user.IsActive {
		return JwtAccessToken{}, side, ErrUserInactive
	}

	// 同時に2回来たら後の方はここで負ける
	if err := u.rtRepo.MarkUsed(ctx, rt.ID); err != nil {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return JwtAccessToken{}, side, ErrSecurityIncident
	}

	plain, hash, err := newRefreshToken()
	if err != nil {
		return JwtAccessToken{}, side, err
	}

	expiresAt := now.Add(u.ttl.For(rt.Persistent))
	if err := u.rtRepo.Create(ctx, &model.RefreshToken{
		ID:         u.idGen.NewID(),
		UserID:     user.ID,
		TokenHash:  hash,
		UserAgent:  in.UserAgent,
		Persistent: rt.Persistent,
		ExpiresAt:  expiresAt,
	}); err != nil {
		return JwtAccessToken{}, side, err
	}

	accessToken, accessExp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return JwtAccessToken{}, side, err
	}

	side = RefreshCookie{PlainRefreshToken: plain, ExpiresAt: expiresAt, Persistent: rt.Persistent}
	return JwtAccessToken{
		AccessToken:  accessToken,
		ExpiresIn:    int(accessExp.Sub(now).Seconds()),
		TokenVersion: user.TokenVersion,
	}, side, nil
}

// Logout はそのrefresh tokenだけ失効させる
func (u *SessionUsecase) Logout(ctx context.Context, refreshToken string) error {
	if err := u.validator.ValidateRefresh(refreshToken); err != nil {
		return ErrInvalidRefreshToken
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshToken))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return ErrInvalidRefreshToken
	}
	if err != nil {
		return err
	}

	// 2回目のログアウトは失効済みなので ErrInvalidRefreshToken
	if err := u.rtRepo.Revoke(ctx, rt.ID); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return ErrInvalidRefreshToken
		}
		return err
	}
	return nil
}

// ForceLogout はtoken_versionを上げて発行済みのアクセストークンを無効にする
func (u *SessionUsecase) ForceLogout(ctx context.Context, targetUserID int64) (ForceLogoutOutput, error) {
	if targetUserID <= 0 {
		return ForceLogoutOutput{}, repository.ErrUserNotFound
	}

	if err := u.userRepo.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return ForceLogoutOutput{}, err
	}
	if err := u.rtRepo.DeleteAllByUserID(ctx, targetUserID); err != nil {
		return ForceLogoutOutput{}, err
	}

	//更新後を取得してnew_token_versionを返す
	user, err := u.userRepo.FindByID(ctx, targetUserID)
	if err != nil {
		return ForceLogoutOutput{}, err
	}
	return ForceLogoutOutput{UserID: user.ID, NewTokenVersion: user.TokenVersion}, nil
}
