package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ScraperConfig holds general browser settings.
type ScraperConfig struct {
	Headless    bool   `yaml:"headless"`
	UserDataDir string `yaml:"user_data_dir"`
	// Delete enables the removal of at-risk listings. Off by default.
	Delete bool `yaml:"delete"`
}

// ConsoleConfig describes where the listing console lives.
type ConsoleConfig struct {
	StartURL  string `yaml:"start_url"`
	EntryLink string `yaml:"entry_link"`
}

// RiskConfig holds the markers that make a row qualify.
type RiskConfig struct {
	TightMarker      string `yaml:"tight_marker"`
	TakenDownPattern string `yaml:"taken_down_pattern"`
	RemovedPattern   string `yaml:"removed_pattern"`
}

// TimeoutsConfig bounds every wait of the pipeline.
type TimeoutsConfig struct {
	Login              time.Duration `yaml:"login"`
	Table              time.Duration `yaml:"table"`
	PageChange         time.Duration `yaml:"page_change"`
	PageChangeFallback time.Duration `yaml:"page_change_fallback"`
	NextSettle         time.Duration `yaml:"next_settle"`
	ScrollPause        time.Duration `yaml:"scroll_pause"`
	Confirm            time.Duration `yaml:"confirm"`
	Result             time.Duration `yaml:"result"`
	DialogDetach       time.Duration `yaml:"dialog_detach"`
	Absence            time.Duration `yaml:"absence"`
	AbsenceFallback    time.Duration `yaml:"absence_fallback"`
}

// StorageConfig holds the on-disk locations.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Scraper      ScraperConfig  `yaml:"scraper"`
	Console      ConsoleConfig  `yaml:"console"`
	Risk         RiskConfig     `yaml:"risk"`
	Timeouts     TimeoutsConfig `yaml:"timeouts"`
	ScrollPasses int            `yaml:"scroll_passes"`
	ScrollDelta  float64        `yaml:"scroll_delta"`
	Storage      StorageConfig  `yaml:"storage"`
	Server       struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

const (
	DefaultStartURL  = "https://work.1688.com/home/page/index.htm"
	DefaultEntryLink = "铺货跨境ERP的货品"
)

// Default returns a config with every field set to its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero field.
func (c *Config) ApplyDefaults() {
	setString(&c.Console.StartURL, DefaultStartURL)
	setString(&c.Console.EntryLink, DefaultEntryLink)

	setString(&c.Risk.TightMarker, "库存紧张")
	setString(&c.Risk.TakenDownPattern, "已下架")
	setString(&c.Risk.RemovedPattern, "移除提示|移除成功")

	setString(&c.Storage.Dir, "storage")
	setString(&c.Scraper.UserDataDir, filepath.Join(c.Storage.Dir, "user-data"))
	setString(&c.Server.Port, "8080")

	if c.ScrollPasses <= 0 {
		c.ScrollPasses = 5
	}
	if c.ScrollDelta <= 0 {
		c.ScrollDelta = 2000
	}

	t := &c.Timeouts
	setDuration(&t.Login, 10*time.Minute)
	setDuration(&t.Table, 2*time.Minute)
	setDuration(&t.PageChange, 30*time.Second)
	setDuration(&t.PageChangeFallback, 1500*time.Millisecond)
	setDuration(&t.NextSettle, 300*time.Millisecond)
	setDuration(&t.ScrollPause, 500*time.Millisecond)
	setDuration(&t.Confirm, 3*time.Second)
	setDuration(&t.Result, 10*time.Second)
	setDuration(&t.DialogDetach, 10*time.Second)
	setDuration(&t.Absence, 20*time.Second)
	setDuration(&t.AbsenceFallback, 800*time.Millisecond)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst <= 0 {
		*dst = def
	}
}

// Load reads the YAML file at path and applies defaults. A missing file is not
// an error: the defaults alone describe a working setup.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshalling config YAML: %w", err)
		}
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadConfig is Load for binaries that cannot run without a config.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}
