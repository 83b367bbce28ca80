// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"statarb-go/internal/market"
)

// App captures process-wide runtime settings such as metrics address and logging level.
type App struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Database points at the sqlite file shared by ingestion and analytics.
type Database struct {
	Path string `yaml:"path"`
}

// Ingest configures the websocket tick feed.
type Ingest struct {
	Provider           string `yaml:"provider"` // "binance" or "stub"
	WSURL              string `yaml:"ws_url"`
	ReconnectDelaySecs int    `yaml:"reconnect_delay_secs"`
	BatchSize          int    `yaml:"batch_size"`
}

// Pair names the dependent (Y) and independent (X) legs of a co-moving pair.
type Pair struct {
	Y string `yaml:"y"`
	X string `yaml:"x"`
}

// Name renders the conventional Y/X pair label.
func (p Pair) Name() string { return p.Y + "/" + p.X }

// RollingWindows holds the minimum observation counts for each rolling statistic.
type RollingWindows struct {
	Hedge       int `yaml:"hedge"`
	ZScore      int `yaml:"zscore"`
	Correlation int `yaml:"correlation"`
	Volatility  int `yaml:"volatility"`
}

// Max returns the largest configured window, used to size trailing history fetches.
func (w RollingWindows) Max() int {
	max := w.Hedge
	for _, v := range []int{w.ZScore, w.Correlation, w.Volatility} {
		if v > max {
			max = v
		}
	}
	return max
}

// Analytics groups the engine's pair set, timeframes, windows, and cadence.
type Analytics struct {
	Pairs              []Pair          `yaml:"pairs"`
	Timeframes         []string        `yaml:"timeframes"`
	RollingWindows     RollingWindows  `yaml:"rolling_windows"`
	LookbackMinutes    int             `yaml:"lookback_minutes"`
	UpdateIntervalSecs int             `yaml:"update_interval_secs"`
	FillMode           market.FillMode `yaml:"fill_mode"`
	MinObservations    int             `yaml:"min_observations"`
}

// Alerts carries signalling thresholds consumed by downstream dashboards and
// reused as the backtester's default entry threshold.
type Alerts struct {
	DefaultZScoreThreshold float64 `yaml:"default_zscore_threshold"`
}

// Backtest tunes the threshold strategy simulator.
type Backtest struct {
	EntryThreshold float64 `yaml:"entry_threshold"`
	ExitThreshold  float64 `yaml:"exit_threshold"`
	CloseAtEnd     bool    `yaml:"close_at_end"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Database  Database  `yaml:"database"`
	Ingest    Ingest    `yaml:"ingest"`
	Analytics Analytics `yaml:"analytics"`
	Alerts    Alerts    `yaml:"alerts"`
	Backtest  Backtest  `yaml:"backtest"`
}

// Load reads a YAML file from disk, hydrates a Config struct, applies
// defaults, and validates it. Validation failures are fatal by contract: the
// engine must not start with malformed windows or pairs.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "storage/statarb.db"
	}
	if c.Ingest.Provider == "" {
		c.Ingest.Provider = "binance"
	}
	if c.Ingest.WSURL == "" {
		c.Ingest.WSURL = "wss://stream.binance.com:9443/stream"
	}
	if c.Ingest.ReconnectDelaySecs <= 0 {
		c.Ingest.ReconnectDelaySecs = 5
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 100
	}
	if len(c.Analytics.Timeframes) == 0 {
		c.Analytics.Timeframes = []string{"1s", "1m", "5m"}
	}
	if c.Analytics.RollingWindows.Hedge == 0 {
		c.Analytics.RollingWindows.Hedge = 60
	}
	if c.Analytics.RollingWindows.ZScore == 0 {
		c.Analytics.RollingWindows.ZScore = 30
	}
	if c.Analytics.RollingWindows.Correlation == 0 {
		c.Analytics.RollingWindows.Correlation = 60
	}
	if c.Analytics.RollingWindows.Volatility == 0 {
		c.Analytics.RollingWindows.Volatility = 20
	}
	if c.Analytics.LookbackMinutes == 0 {
		c.Analytics.LookbackMinutes = 120
	}
	if c.Analytics.UpdateIntervalSecs == 0 {
		c.Analytics.UpdateIntervalSecs = 10
	}
	if c.Analytics.FillMode == "" {
		c.Analytics.FillMode = market.FillOmit
	}
	if c.Analytics.MinObservations == 0 {
		c.Analytics.MinObservations = 20
	}
	if c.Alerts.DefaultZScoreThreshold == 0 {
		c.Alerts.DefaultZScoreThreshold = 2.0
	}
	if c.Backtest.EntryThreshold == 0 {
		c.Backtest.EntryThreshold = c.Alerts.DefaultZScoreThreshold
	}
	if c.Backtest.ExitThreshold == 0 {
		c.Backtest.ExitThreshold = 0.5
	}
}

// Validate rejects configurations the engine cannot safely run with.
func (c *Config) Validate() error {
	if len(c.Analytics.Pairs) == 0 {
		return fmt.Errorf("config: at least one symbol pair is required")
	}
	for i, p := range c.Analytics.Pairs {
		if p.Y == "" || p.X == "" {
			return fmt.Errorf("config: pair %d has an empty symbol", i)
		}
		if p.Y == p.X {
			return fmt.Errorf("config: pair %d regresses %s on itself", i, p.Y)
		}
	}
	if _, err := c.TimeframeDurations(); err != nil {
		return err
	}
	w := c.Analytics.RollingWindows
	for name, v := range map[string]int{
		"hedge":       w.Hedge,
		"zscore":      w.ZScore,
		"correlation": w.Correlation,
		"volatility":  w.Volatility,
	} {
		if v <= 0 {
			return fmt.Errorf("config: rolling window %q must be positive, got %d", name, v)
		}
	}
	if c.Analytics.LookbackMinutes <= 0 {
		return fmt.Errorf("config: lookback_minutes must be positive")
	}
	if c.Analytics.UpdateIntervalSecs <= 0 {
		return fmt.Errorf("config: update_interval_secs must be positive")
	}
	if fm := c.Analytics.FillMode; fm != market.FillOmit && fm != market.FillForward {
		return fmt.Errorf("config: unknown fill_mode %q", fm)
	}
	if c.Backtest.EntryThreshold <= 0 || c.Backtest.ExitThreshold <= 0 {
		return fmt.Errorf("config: backtest thresholds must be positive")
	}
	if c.Backtest.ExitThreshold >= c.Backtest.EntryThreshold {
		return fmt.Errorf("config: exit threshold must be below entry threshold")
	}
	return nil
}

// TimeframeDurations parses the configured timeframe labels.
func (c *Config) TimeframeDurations() ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(c.Analytics.Timeframes))
	for _, tf := range c.Analytics.Timeframes {
		d, err := time.ParseDuration(tf)
		if err != nil {
			return nil, fmt.Errorf("config: invalid timeframe %q: %w", tf, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("config: timeframe %q must be positive", tf)
		}
		out = append(out, d)
	}
	return out, nil
}

// Lookback returns the cold-start history horizon as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Analytics.LookbackMinutes) * time.Minute
}

// UpdateInterval returns the engine cadence as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Analytics.UpdateIntervalSecs) * time.Second
}

// Symbols returns the deduplicated set of symbols across all configured pairs.
func (c *Config) Symbols() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.Analytics.Pairs {
		for _, s := range []string{p.Y, p.X} {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out
}
