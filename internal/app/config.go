package app

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/fasters/starshop/core/config"
	coredatabase "github.com/fasters/starshop/core/database"
	"github.com/fasters/starshop/internal/pricing"
)

// ShopConfig holds the order-flow settings of this bot.
type ShopConfig struct {
	// AdminChatID receives new orders for review.
	AdminChatID int64 `yaml:"admin_chat_id" envconfig:"ADMIN_CHAT_ID"`
	// AdminGroupID receives the broadcast for approved orders.
	AdminGroupID int64 `yaml:"admin_group_id" envconfig:"ADMIN_GROUP_ID"`

	MinQuantity int     `yaml:"min_quantity" envconfig:"SHOP_MIN_QUANTITY"`
	MaxQuantity int     `yaml:"max_quantity" envconfig:"SHOP_MAX_QUANTITY"`
	Commission  float64 `yaml:"commission" envconfig:"SHOP_COMMISSION"`

	QuantityOptions []int `yaml:"quantity_options"`

	ReviewsURL        string `yaml:"reviews_url" envconfig:"SHOP_REVIEWS_URL"`
	PaymentContactURL string `yaml:"payment_contact_url" envconfig:"SHOP_PAYMENT_CONTACT_URL"`
}

// HealthConfig configures the liveness endpoint.
type HealthConfig struct {
	Port int `yaml:"port" envconfig:"PORT"`
}

// ArchiveConfig toggles persistence of resolved orders.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ARCHIVE_ENABLED"`
}

// Config aggregates core and shop configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Shop     ShopConfig          `yaml:"shop"`
	Health   HealthConfig        `yaml:"health"`
	Archive  ArchiveConfig       `yaml:"archive"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Core }

const (
	defaultReviewsURL        = "https://t.me/fasters_tg_feedback"
	defaultPaymentContactURL = "https://t.me/fasters_admin"
	defaultHealthPort        = 8080
)

// LoadConfig reads configuration from a YAML file and environment
// variables, then validates it.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalizeShop(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeShop(cfg *Config) error {
	if cfg.Shop.AdminChatID == 0 {
		return fmt.Errorf("shop.admin_chat_id is required")
	}
	if cfg.Shop.AdminGroupID == 0 {
		return fmt.Errorf("shop.admin_group_id is required")
	}
	if cfg.Shop.MinQuantity < 0 || cfg.Shop.MaxQuantity < 0 {
		return fmt.Errorf("shop quantity bounds must be >= 0")
	}
	if cfg.Shop.MinQuantity == 0 {
		cfg.Shop.MinQuantity = pricing.DefaultMinQuantity
	}
	if cfg.Shop.MaxQuantity == 0 {
		cfg.Shop.MaxQuantity = pricing.DefaultMaxQuantity
	}
	if cfg.Shop.MinQuantity > cfg.Shop.MaxQuantity {
		return fmt.Errorf("shop.min_quantity %d exceeds shop.max_quantity %d",
			cfg.Shop.MinQuantity, cfg.Shop.MaxQuantity)
	}
	if cfg.Shop.Commission < 0 {
		return fmt.Errorf("shop.commission must be >= 0")
	}
	for _, q := range cfg.Shop.QuantityOptions {
		if q < cfg.Shop.MinQuantity || q > cfg.Shop.MaxQuantity {
			return fmt.Errorf("shop.quantity_options entry %d outside [%d, %d]",
				q, cfg.Shop.MinQuantity, cfg.Shop.MaxQuantity)
		}
	}
	if cfg.Shop.ReviewsURL == "" {
		cfg.Shop.ReviewsURL = defaultReviewsURL
	}
	if cfg.Shop.PaymentContactURL == "" {
		cfg.Shop.PaymentContactURL = defaultPaymentContactURL
	}
	if cfg.Health.Port <= 0 {
		cfg.Health.Port = defaultHealthPort
	}
	return nil
}
