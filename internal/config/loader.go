package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("FUTTERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("futterwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".futterwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations the run coordinator cannot honor.
func validate(cfg *Config) error {
	if cfg.Scraper.RequestDelayMin > cfg.Scraper.RequestDelayMax {
		return fmt.Errorf("scraper.request_delay_min (%s) exceeds request_delay_max (%s)",
			cfg.Scraper.RequestDelayMin, cfg.Scraper.RequestDelayMax)
	}
	if cfg.Scraper.BrandConcurrency < 1 {
		return fmt.Errorf("scraper.brand_concurrency must be at least 1")
	}
	if cfg.Scraper.MaxPages < 1 {
		return fmt.Errorf("scraper.max_pages must be at least 1")
	}
	switch cfg.Storage.Type {
	case "mongodb", "none":
	default:
		return fmt.Errorf("unknown storage.type %q", cfg.Storage.Type)
	}
	return nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scraper.default_max_price_per_kg", cfg.Scraper.DefaultMaxPricePerKg)
	v.SetDefault("scraper.max_pages", cfg.Scraper.MaxPages)
	v.SetDefault("scraper.request_delay_min", cfg.Scraper.RequestDelayMin)
	v.SetDefault("scraper.request_delay_max", cfg.Scraper.RequestDelayMax)
	v.SetDefault("scraper.navigation_timeout", cfg.Scraper.NavigationTimeout)
	v.SetDefault("scraper.tile_wait_timeout", cfg.Scraper.TileWaitTimeout)
	v.SetDefault("scraper.fallback_wait_timeout", cfg.Scraper.FallbackWaitTimeout)
	v.SetDefault("scraper.scroll_cycles", cfg.Scraper.ScrollCycles)
	v.SetDefault("scraper.scroll_settle", cfg.Scraper.ScrollSettle)
	v.SetDefault("scraper.brand_concurrency", cfg.Scraper.BrandConcurrency)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.locale", cfg.Browser.Locale)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)

	v.SetDefault("sites.zooplus", cfg.Sites.Zooplus)
	v.SetDefault("sites.bitiba", cfg.Sites.Bitiba)
	v.SetDefault("sites.zooroyal", cfg.Sites.Zooroyal)
	v.SetDefault("sites.fressnapf", cfg.Sites.Fressnapf)
	v.SetDefault("sites.zoo24", cfg.Sites.Zoo24)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.uri", cfg.Storage.URI)
	v.SetDefault("storage.database", cfg.Storage.Database)

	v.SetDefault("alerts.enabled", cfg.Alerts.Enabled)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
