package application

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	reconcile "station-ops/internal/reconcile/domain"
)

// Tolerances carries the tolerance values the calling layer may tune. The
// three-way tolerance and the tank variance bands are fixed policy and live
// in the domain package as constants.
type Tolerances struct {
	MeterDiscrepancyPercent float64 `yaml:"meter_discrepancy_percent"`
	// AlertShortfall is the cash shortage (absolute, station currency) at
	// which a handover triggers a discrepancy alert.
	AlertShortfall float64 `yaml:"alert_shortfall"`
}

// Config is the reconciliation service configuration.
type Config struct {
	Defaults   Tolerances            `yaml:"defaults"`
	Tanks      map[string]Tolerances `yaml:"tanks"`
	WebhookURL string                `yaml:"webhook_url"`
	ReportDir  string                `yaml:"report_dir"`
}

// LoadConfig loads configuration from env, then overlays the YAML file named
// by STATION_TOLERANCES_CONFIG when present.
func LoadConfig() (Config, error) {
	cfg := Config{
		Defaults: Tolerances{
			MeterDiscrepancyPercent: getenvFloatDefault("METER_DISCREPANCY_PCT", reconcile.DefaultMeterDiscrepancyPercent),
			AlertShortfall:          getenvFloatDefault("ALERT_SHORTFALL", 100),
		},
		WebhookURL: os.Getenv("DISCREPANCY_WEBHOOK_URL"),
		ReportDir:  getenvDefault("REPORT_DIR", "var/reports"),
	}

	if path := os.Getenv("STATION_TOLERANCES_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Defaults.MeterDiscrepancyPercent <= 0 {
		cfg.Defaults.MeterDiscrepancyPercent = reconcile.DefaultMeterDiscrepancyPercent
	}
	return cfg, nil
}

// TolerancesForTank returns the tolerances for a tank, with per-tank
// overrides applied over the defaults.
func (c Config) TolerancesForTank(tankID string) Tolerances {
	if c.Tanks != nil {
		if override, ok := c.Tanks[tankID]; ok {
			return mergeTolerances(c.Defaults, override)
		}
	}
	return c.Defaults
}

func mergeTolerances(base, override Tolerances) Tolerances {
	if override.MeterDiscrepancyPercent != 0 {
		base.MeterDiscrepancyPercent = override.MeterDiscrepancyPercent
	}
	if override.AlertShortfall != 0 {
		base.AlertShortfall = override.AlertShortfall
	}
	return base
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
