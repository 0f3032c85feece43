package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for futterwatch.
type Config struct {
	Scraper Scraper `mapstructure:"scraper" yaml:"scraper"`
	Browser Browser `mapstructure:"browser" yaml:"browser"`
	Sites   Sites   `mapstructure:"sites"   yaml:"sites"`
	Storage Storage `mapstructure:"storage" yaml:"storage"`
	Alerts  Alerts  `mapstructure:"alerts"  yaml:"alerts"`
	Logging Logging `mapstructure:"logging" yaml:"logging"`
}

// Scraper controls run-wide scan behavior.
type Scraper struct {
	// DefaultMaxPricePerKg is the scrape ceiling used when the run request
	// carries a lower (or no) user ceiling; scans always fetch at least this
	// range so deals stay visible to every recipient.
	DefaultMaxPricePerKg float64       `mapstructure:"default_max_price_per_kg" yaml:"default_max_price_per_kg"`
	MaxPages             int           `mapstructure:"max_pages"                yaml:"max_pages"`
	RequestDelayMin      time.Duration `mapstructure:"request_delay_min"        yaml:"request_delay_min"`
	RequestDelayMax      time.Duration `mapstructure:"request_delay_max"        yaml:"request_delay_max"`
	NavigationTimeout    time.Duration `mapstructure:"navigation_timeout"       yaml:"navigation_timeout"`
	TileWaitTimeout      time.Duration `mapstructure:"tile_wait_timeout"        yaml:"tile_wait_timeout"`
	FallbackWaitTimeout  time.Duration `mapstructure:"fallback_wait_timeout"    yaml:"fallback_wait_timeout"`
	ScrollCycles         int           `mapstructure:"scroll_cycles"            yaml:"scroll_cycles"`
	ScrollSettle         time.Duration `mapstructure:"scroll_settle"            yaml:"scroll_settle"`
	BrandConcurrency     int           `mapstructure:"brand_concurrency"        yaml:"brand_concurrency"`
}

// Browser controls the shared headless browser.
type Browser struct {
	Headless  bool   `mapstructure:"headless"   yaml:"headless"`
	Locale    string `mapstructure:"locale"     yaml:"locale"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Sites enables or disables individual adapters.
type Sites struct {
	Zooplus   bool `mapstructure:"zooplus"   yaml:"zooplus"`
	Bitiba    bool `mapstructure:"bitiba"    yaml:"bitiba"`
	Zooroyal  bool `mapstructure:"zooroyal"  yaml:"zooroyal"`
	Fressnapf bool `mapstructure:"fressnapf" yaml:"fressnapf"`
	Zoo24     bool `mapstructure:"zoo24"     yaml:"zoo24"`
}

// Storage controls the persistence sink.
type Storage struct {
	Type     string `mapstructure:"type"     yaml:"type"` // mongodb, none
	URI      string `mapstructure:"uri"      yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// Alerts controls alert delivery at the collaborator boundary.
type Alerts struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Logging controls logging behavior.
type Logging struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: Scraper{
			DefaultMaxPricePerKg: 10.0,
			MaxPages:             100,
			RequestDelayMin:      2 * time.Second,
			RequestDelayMax:      10 * time.Second,
			NavigationTimeout:    60 * time.Second,
			TileWaitTimeout:      15 * time.Second,
			FallbackWaitTimeout:  5 * time.Second,
			ScrollCycles:         3,
			ScrollSettle:         1500 * time.Millisecond,
			BrandConcurrency:     3,
		},
		Browser: Browser{
			Headless:  true,
			Locale:    "de-DE",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Sites: Sites{
			Zooplus:   true,
			Bitiba:    true,
			Zooroyal:  true,
			Fressnapf: true,
			Zoo24:     true,
		},
		Storage: Storage{
			Type:     "mongodb",
			URI:      "mongodb://localhost:27017",
			Database: "futterwatch",
		},
		Alerts: Alerts{
			Enabled: true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}
