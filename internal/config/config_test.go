package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatIDs(t *testing.T) {
	assert.Equal(t, []int64{123, -100456}, parseChatIDs(" 123, -100456 ,"))
	assert.Equal(t, []int64{7}, parseChatIDs("abc,7"))
	assert.Empty(t, parseChatIDs(""))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "RUB", cfg.Currency)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, 1600, cfg.Upload.MaxWidth)
	assert.Positive(t, cfg.DraftTTL)
}

func TestValidate_ProdRequiresSecrets(t *testing.T) {
	cfg := &Config{Env: "prod", ServerPort: "8080", DB: DBConfig{DSN: "x"}, JWT: JWTConfig{Secret: "storefront-dev-secret-change-in-production"}}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "real-secret"
	assert.Error(t, cfg.Validate(), "webhook secret missing")

	cfg.Paygate.WebhookSecret = "hook"
	assert.NoError(t, cfg.Validate())
}
