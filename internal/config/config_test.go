package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"SESSION_SECRET": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, ":7000", cfg.Addr())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, "default", cfg.RedisUsername)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, "http://localhost:7000", cfg.AppDomain)
	assert.False(t, cfg.Production())
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestLoadAcceptsBcryptCostAtFloor(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"SESSION_SECRET": "s3cret", "BCRYPT_COST": "12"})
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestLoadParsesLists(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"SESSION_SECRET": "s3cret",
		"NODE_ENV":       "production",
		"KAFKA_BROKERS":  "k1:9092,k2:9092",
		"CORS_ORIGIN":    "https://app.example.com",
		"REDIS_HOST":     "memory",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.Production())
	assert.Empty(t, cfg.RedisAddr())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"short secret":   {"SESSION_SECRET": "abc"},
		"bad env":        {"SESSION_SECRET": "s3cret", "NODE_ENV": "staging"},
		"bad domain":     {"SESSION_SECRET": "s3cret", "APP_DOMAIN": "localhost"},
		"smtp no from":   {"SESSION_SECRET": "s3cret", "SMTP_HOST": "smtp.example.com"},
		"bad algorithm":  {"SESSION_SECRET": "s3cret", "PASSWORD_ALGORITHM": "md5"},
		"bad port":       {"SESSION_SECRET": "s3cret", "PORT": "70000"},
		"weak bcrypt":    {"SESSION_SECRET": "s3cret", "NODE_ENV": "production", "BCRYPT_COST": "4"},
		"bcrypt 11":      {"SESSION_SECRET": "s3cret", "BCRYPT_COST": "11"},
		"bcrypt 32":      {"SESSION_SECRET": "s3cret", "BCRYPT_COST": "32"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}

func TestDeriveKeySeparatesPurposes(t *testing.T) {
	cfg := Config{SessionSecret: "s3cret"}

	a := cfg.DeriveKey("csrf")
	b := cfg.DeriveKey("oauth-state")
	assert.Len(t, a, 32)
	assert.False(t, bytes.Equal(a, b))
	assert.Equal(t, a, cfg.DeriveKey("csrf"))
}
