// Package config loads the process-wide engine configuration. All values
// are read once at startup and immutable thereafter.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/groveworld/guardian/internal/actions"
)

type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Rates       RatesConfig        `yaml:"rates"`
	Distances   map[string]float64 `yaml:"distances"`
	Enforcement EnforcementConfig  `yaml:"enforcement"`
	Sweep       SweepConfig        `yaml:"sweep"`
	Integrity   IntegrityConfig    `yaml:"integrity"`
	Catalog     CatalogConfig      `yaml:"catalog"`
	Audit       AuditConfig        `yaml:"audit"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type RatesConfig struct {
	// GlobalMaxPerSecond caps total actions per actor over the trailing second.
	GlobalMaxPerSecond int `yaml:"global_max_per_second"`
	// PerKind maps an action kind to its maximum rate in actions/second.
	// A rate of 2 means a 500ms minimum inter-arrival.
	PerKind map[string]float64 `yaml:"per_kind"`
}

type EnforcementConfig struct {
	WarningAt          int `yaml:"warning_at"`
	KickAt             int `yaml:"kick_at"`
	BanAt              int `yaml:"ban_at"`
	BanDurationMinutes int `yaml:"ban_duration_minutes"`
}

type SweepConfig struct {
	DetectionIntervalSeconds int     `yaml:"detection_interval_seconds"`
	RetentionIntervalSeconds int     `yaml:"retention_interval_seconds"`
	RapidActionWindowSeconds int     `yaml:"rapid_action_window_seconds"`
	RapidActionMax           int     `yaml:"rapid_action_max"`
	PatternWindowSeconds     int     `yaml:"pattern_window_seconds"`
	PatternMin               int     `yaml:"pattern_min"`
	RetentionMinutes         int     `yaml:"retention_minutes"`
	MeanViolationAlert       float64 `yaml:"mean_violation_alert"`
}

type IntegrityConfig struct {
	MaxSpeed     float64 `yaml:"max_speed"`
	MaxJumpPower float64 `yaml:"max_jump_power"`
}

type CatalogConfig struct {
	Crops []string `yaml:"crops"`
	Items []string `yaml:"items"`
}

type AuditConfig struct {
	RedisChannel  string `yaml:"redis_channel"`
	PostgresTable string `yaml:"postgres_table"`
}

// Default returns the configuration used when no file is supplied.
// The numbers mirror the tuning the enforcement policy was designed
// around: warn at 3 violations, kick at 10, one-hour ban at 25.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Env: "development"},
		Rates: RatesConfig{
			GlobalMaxPerSecond: 10,
			PerKind: map[string]float64{
				string(actions.KindPlant):    2,
				string(actions.KindHarvest):  2,
				string(actions.KindWater):    4,
				string(actions.KindPurchase): 1,
				string(actions.KindSell):     1,
			},
		},
		Distances: map[string]float64{
			string(actions.KindPlant):   30,
			string(actions.KindHarvest): 50,
			string(actions.KindWater):   30,
		},
		Enforcement: EnforcementConfig{
			WarningAt:          3,
			KickAt:             10,
			BanAt:              25,
			BanDurationMinutes: 60,
		},
		Sweep: SweepConfig{
			DetectionIntervalSeconds: 10,
			RetentionIntervalSeconds: 300,
			RapidActionWindowSeconds: 5,
			RapidActionMax:           20,
			PatternWindowSeconds:     300,
			PatternMin:               3,
			RetentionMinutes:         60,
			MeanViolationAlert:       5.0,
		},
		Integrity: IntegrityConfig{MaxSpeed: 50, MaxJumpPower: 75},
		Catalog: CatalogConfig{
			Crops: []string{"crop-wheat", "crop-corn", "crop-pumpkin"},
			Items: []string{"item-seed-wheat", "item-seed-corn", "item-watering-can"},
		},
		Audit: AuditConfig{
			RedisChannel:  "guardian:audit",
			PostgresTable: "guardian_audit",
		},
	}
}

// Load reads YAML configuration from path, filling any zero values with
// the defaults from Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Rates.GlobalMaxPerSecond == 0 {
		c.Rates.GlobalMaxPerSecond = d.Rates.GlobalMaxPerSecond
	}
	if len(c.Rates.PerKind) == 0 {
		c.Rates.PerKind = d.Rates.PerKind
	}
	if len(c.Distances) == 0 {
		c.Distances = d.Distances
	}
	if c.Enforcement.WarningAt == 0 {
		c.Enforcement.WarningAt = d.Enforcement.WarningAt
	}
	if c.Enforcement.KickAt == 0 {
		c.Enforcement.KickAt = d.Enforcement.KickAt
	}
	if c.Enforcement.BanAt == 0 {
		c.Enforcement.BanAt = d.Enforcement.BanAt
	}
	if c.Enforcement.BanDurationMinutes == 0 {
		c.Enforcement.BanDurationMinutes = d.Enforcement.BanDurationMinutes
	}
	if c.Sweep.DetectionIntervalSeconds == 0 {
		c.Sweep.DetectionIntervalSeconds = d.Sweep.DetectionIntervalSeconds
	}
	if c.Sweep.RetentionIntervalSeconds == 0 {
		c.Sweep.RetentionIntervalSeconds = d.Sweep.RetentionIntervalSeconds
	}
	if c.Sweep.RapidActionWindowSeconds == 0 {
		c.Sweep.RapidActionWindowSeconds = d.Sweep.RapidActionWindowSeconds
	}
	if c.Sweep.RapidActionMax == 0 {
		c.Sweep.RapidActionMax = d.Sweep.RapidActionMax
	}
	if c.Sweep.PatternWindowSeconds == 0 {
		c.Sweep.PatternWindowSeconds = d.Sweep.PatternWindowSeconds
	}
	if c.Sweep.PatternMin == 0 {
		c.Sweep.PatternMin = d.Sweep.PatternMin
	}
	if c.Sweep.RetentionMinutes == 0 {
		c.Sweep.RetentionMinutes = d.Sweep.RetentionMinutes
	}
	if c.Sweep.MeanViolationAlert == 0 {
		c.Sweep.MeanViolationAlert = d.Sweep.MeanViolationAlert
	}
	if c.Integrity.MaxSpeed == 0 {
		c.Integrity.MaxSpeed = d.Integrity.MaxSpeed
	}
	if c.Integrity.MaxJumpPower == 0 {
		c.Integrity.MaxJumpPower = d.Integrity.MaxJumpPower
	}
	if c.Audit.RedisChannel == "" {
		c.Audit.RedisChannel = d.Audit.RedisChannel
	}
	if c.Audit.PostgresTable == "" {
		c.Audit.PostgresTable = d.Audit.PostgresTable
	}
}

func (c *Config) validate() error {
	e := c.Enforcement
	if !(e.WarningAt < e.KickAt && e.KickAt < e.BanAt) {
		return fmt.Errorf("enforcement thresholds must be strictly increasing: warn=%d kick=%d ban=%d",
			e.WarningAt, e.KickAt, e.BanAt)
	}
	for kind, rate := range c.Rates.PerKind {
		if rate <= 0 {
			return fmt.Errorf("rate for kind %q must be positive, got %v", kind, rate)
		}
	}
	for kind, dist := range c.Distances {
		if dist <= 0 {
			return fmt.Errorf("distance for kind %q must be positive, got %v", kind, dist)
		}
	}
	return nil
}

// BanDuration returns the configured ban length.
func (c *Config) BanDuration() time.Duration {
	return time.Duration(c.Enforcement.BanDurationMinutes) * time.Minute
}

// RetentionWindow returns how long per-actor violation events are kept.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Sweep.RetentionMinutes) * time.Minute
}
