package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasters/starshop/internal/pricing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
shop:
  admin_chat_id: -100
  admin_group_id: -200
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, int64(-100), cfg.Shop.AdminChatID)
	assert.Equal(t, int64(-200), cfg.Shop.AdminGroupID)
	assert.Equal(t, pricing.DefaultMinQuantity, cfg.Shop.MinQuantity)
	assert.Equal(t, pricing.DefaultMaxQuantity, cfg.Shop.MaxQuantity)
	assert.Equal(t, defaultReviewsURL, cfg.Shop.ReviewsURL)
	assert.Equal(t, defaultPaymentContactURL, cfg.Shop.PaymentContactURL)
	assert.Equal(t, defaultHealthPort, cfg.Health.Port)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "longpoll", cfg.Core.Telegram.RunMode)
	require.NotNil(t, cfg.CoreConfig())
}

func TestLoadConfigRequiresChats(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
telegram:
  token: "123:abc"
shop:
  admin_group_id: -200
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_chat_id")

	_, err = LoadConfig(writeConfig(t, `
telegram:
  token: "123:abc"
shop:
  admin_chat_id: -100
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_group_id")
}

func TestLoadConfigValidatesBounds(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, minimalConfig+`
  min_quantity: 500
  max_quantity: 100
`))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, minimalConfig+`
  quantity_options: [10]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity_options")
}
