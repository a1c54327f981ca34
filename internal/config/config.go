package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"zonemeter/internal/models"
)

type APIConfig struct {
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	BaseURL        string `yaml:"baseUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type AccountingConfig struct {
	StepMinutes int `yaml:"stepMinutes"`
}

func (a AccountingConfig) StepInterval() time.Duration {
	if a.StepMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.StepMinutes) * time.Minute
}

type ReportingConfig struct {
	GridStepMinutes int `yaml:"gridStepMinutes"`
}

func (r ReportingConfig) GridStep() time.Duration {
	if r.GridStepMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(r.GridStepMinutes) * time.Minute
}

type StorageConfig struct {
	DatabasePath string `yaml:"databasePath"`
}

type Config struct {
	API        APIConfig        `yaml:"api"`
	Zones      []models.Zone    `yaml:"zones"`
	Accounting AccountingConfig `yaml:"accounting"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Storage    StorageConfig    `yaml:"storage"`
	Debug      bool
}

// Load reads the YAML config. Gateway credentials may be kept out of the
// file and supplied via ZONEMETER_API_USERNAME / ZONEMETER_API_PASSWORD,
// optionally from a .env next to the working directory.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %v", err)
	}

	c := &Config{}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("parsing yaml: %v", err)
	}

	if v := os.Getenv("ZONEMETER_API_USERNAME"); v != "" {
		c.API.Username = v
	}
	if v := os.Getenv("ZONEMETER_API_PASSWORD"); v != "" {
		c.API.Password = v
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if len(c.Zones) < 2 {
		return fmt.Errorf("config needs at least two zones, got %d", len(c.Zones))
	}
	seen := make(map[models.Zone]bool, len(c.Zones))
	for _, z := range c.Zones {
		if z == "" {
			return fmt.Errorf("empty zone name in config")
		}
		if seen[z] {
			return fmt.Errorf("duplicate zone %q in config", z)
		}
		seen[z] = true
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.databasePath is required")
	}
	return nil
}

// DefaultZone is where a meter lands when the assignment registry has no
// record for it yet: the first zone of the closed set.
func (c *Config) DefaultZone() models.Zone {
	return c.Zones[0]
}

// KnownZone reports whether z belongs to the configured closed set.
func (c *Config) KnownZone(z models.Zone) bool {
	for _, known := range c.Zones {
		if known == z {
			return true
		}
	}
	return false
}
