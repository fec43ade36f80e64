package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PAYMENT_SESSION_TTL", "")
	t.Setenv("ADDRESS_CACHE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.NovaPoshta.CacheTTL)
	assert.Equal(t, "storefront", cfg.MongoDB)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LIQPAY_SANDBOX", "true")
	t.Setenv("PAYMENT_SESSION_TTL", "10m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.LiqPay.Sandbox)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://shop.example, ,https://admin.example")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSOrigins)

	t.Setenv("CORS_ORIGINS", "")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("SMTP_PORT", "twenty")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT")
}

func TestValidate(t *testing.T) {
	cfg := Config{JWTSecret: "s", LiqPay: LiqPay{PublicKey: "pub", PrivateKey: "priv"}}
	assert.NoError(t, cfg.Validate())

	cfg.LiqPay.PrivateKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissing)

	assert.ErrorIs(t, Config{}.Validate(), ErrMissing)
}
