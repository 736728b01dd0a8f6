package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "dev")
	t.Setenv("DB_DRIVER", "sqlite")
	for _, k := range []string{"DATABASE_URL", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "SESSION_TOKEN_TTL", "COOKIE_SECURE", "BCRYPT_COST", "SES_REGION", "SES_SENDER", "SES_ACCESS_KEY_ID", "SES_SECRET_ACCESS_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoad_SQLiteDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoad_PostgresRequiresUser(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "")

	_, err := Load()
	assert.EqualError(t, err, "POSTGRES_USER is required")
}

func TestLoad_PostgresURLSkipsParts(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/shop")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/shop", cfg.DatabaseURL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "ACCESS_TOKEN_TTL must be duration")
}

func TestLoad_SESNeedsSender(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SES_REGION", "ap-northeast-1")
	t.Setenv("SES_SENDER", "")

	_, err := Load()
	assert.EqualError(t, err, "SES_SENDER is required when SES_REGION is set")
}

func TestLoad_SESKeysComeInPairs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SES_ACCESS_KEY_ID", "AKIA")

	_, err := Load()
	assert.EqualError(t, err, "SES_ACCESS_KEY_ID and SES_SECRET_ACCESS_KEY must be set together")
}
