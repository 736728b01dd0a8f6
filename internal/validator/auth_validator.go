package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")

	// 確認用パスワードが一致しない
	ErrPasswordMismatch = errors.New("password confirmation does not match")

	// refresh tokenが不正
	ErrInvalidRefresh = errors.New("invalid refresh")
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcryptの上限
	maxEmailLen    = 255
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// 認証まわりの入力検証。DBは見ない（重複は一意制約で判定する）
type AuthValidator struct{}

func NewAuthValidator() *AuthValidator {
	return &AuthValidator{}
}

// サインアップの入力を検証
func (v *AuthValidator) ValidateRegister(email, password, passwordConfirm string) error {
	if err := validateEmail(email); err != nil {
		return err
	}

	n := utf8.RuneCountInString(password)
	if n < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password too long", ErrInvalidInput)
	}
	if password != passwordConfirm {
		return ErrPasswordMismatch
	}
	return nil
}

// ログインの入力を検証
func (v *AuthValidator) ValidateLogin(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: password required", ErrInvalidInput)
	}
	return nil
}

func (v *AuthValidator) ValidateRefresh(refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrInvalidRefresh
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	if len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	return nil
}
