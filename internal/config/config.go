package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Session struct {
	Start                string `yaml:"start"` // HH:MM wall clock
	End                  string `yaml:"end"`
	ClosingBufferMinutes int    `yaml:"closing_buffer_minutes"`
	TimeZone             string `yaml:"time_zone"`
}

type Timers struct {
	PollIntervalSeconds      int `yaml:"poll_interval_seconds"`
	ExecIntervalSeconds      int `yaml:"exec_interval_seconds"`
	CredentialRefreshMinutes int `yaml:"credential_refresh_minutes"`
	HoursPollMinutes         int `yaml:"hours_poll_minutes"`
	OffHoursIntervalMinutes  int `yaml:"off_hours_interval_minutes"`
	OrderTimeoutMinutes      int `yaml:"order_timeout_minutes"`
}

type Cache struct {
	FreshnessDays int `yaml:"freshness_days"`
}

type Strangle struct {
	MaxImpliedMove    float64 `yaml:"max_implied_move"`
	MinExpirationDays int     `yaml:"min_expiration_days"`
	ScansPerSecond    float64 `yaml:"scans_per_second"`
}

type Risk struct {
	Ladder    []float64 `yaml:"ladder"`    // strictly increasing allocation fractions
	Benchmark string    `yaml:"benchmark"` // symbol driving ladder adjustments
}

type Pairs struct {
	Threshold  float64 `yaml:"threshold"`
	WindowDays int     `yaml:"window_days"`
}

type Ledger struct {
	MaxAgeDays   int `yaml:"max_age_days"`
	SweepAgeDays int `yaml:"sweep_age_days"`
}

type Orders struct {
	MaxOpen    int    `yaml:"max_open"`
	OutboxPath string `yaml:"outbox_path"`
}

type Root struct {
	StorePath   string   `yaml:"store_path"`
	MetricsAddr string   `yaml:"metrics_addr"`
	DryRun      bool     `yaml:"dry_run"`
	Session     Session  `yaml:"session"`
	Timers      Timers   `yaml:"timers"`
	Cache       Cache    `yaml:"cache"`
	Strangle    Strangle `yaml:"strangle"`
	Risk        Risk     `yaml:"risk"`
	Pairs       Pairs    `yaml:"pairs"`
	Ledger      Ledger   `yaml:"ledger"`
	Orders      Orders   `yaml:"orders"`
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Default returns a config with every default applied, for dry runs and tests.
func Default() Root {
	var c Root
	c.applyDefaults()
	return c
}

func (c *Root) applyDefaults() {
	if c.StorePath == "" {
		c.StorePath = "data/tradepilot.db"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = "127.0.0.1:8077"
	}
	if c.Session.Start == "" {
		c.Session.Start = "09:30"
	}
	if c.Session.End == "" {
		c.Session.End = "16:00"
	}
	if c.Session.ClosingBufferMinutes == 0 {
		c.Session.ClosingBufferMinutes = 15
	}
	if c.Session.TimeZone == "" {
		c.Session.TimeZone = "America/New_York"
	}
	if c.Timers.PollIntervalSeconds == 0 {
		c.Timers.PollIntervalSeconds = 30
	}
	if c.Timers.ExecIntervalSeconds == 0 {
		c.Timers.ExecIntervalSeconds = 10
	}
	if c.Timers.CredentialRefreshMinutes == 0 {
		c.Timers.CredentialRefreshMinutes = 25
	}
	if c.Timers.HoursPollMinutes == 0 {
		c.Timers.HoursPollMinutes = 29
	}
	if c.Timers.OffHoursIntervalMinutes == 0 {
		c.Timers.OffHoursIntervalMinutes = 2
	}
	if c.Timers.OrderTimeoutMinutes == 0 {
		c.Timers.OrderTimeoutMinutes = 30
	}
	if c.Cache.FreshnessDays == 0 {
		c.Cache.FreshnessDays = 3
	}
	if c.Strangle.MaxImpliedMove == 0 {
		c.Strangle.MaxImpliedMove = 0.15
	}
	if c.Strangle.MinExpirationDays == 0 {
		c.Strangle.MinExpirationDays = 40
	}
	if c.Strangle.ScansPerSecond == 0 {
		c.Strangle.ScansPerSecond = 2
	}
	if len(c.Risk.Ladder) == 0 {
		c.Risk.Ladder = []float64{0.005, 0.01, 0.02, 0.035, 0.05, 0.075, 0.1}
	}
	if c.Risk.Benchmark == "" {
		c.Risk.Benchmark = "SPY"
	}
	if c.Pairs.Threshold == 0 {
		c.Pairs.Threshold = 0.55
	}
	if c.Pairs.WindowDays == 0 {
		c.Pairs.WindowDays = 9
	}
	if c.Ledger.MaxAgeDays == 0 {
		c.Ledger.MaxAgeDays = 5
	}
	if c.Ledger.SweepAgeDays == 0 {
		c.Ledger.SweepAgeDays = 10
	}
	if c.Orders.MaxOpen == 0 {
		c.Orders.MaxOpen = 5
	}
	if c.Orders.OutboxPath == "" {
		c.Orders.OutboxPath = "data/orders.jsonl"
	}
}

func (c *Root) validate() error {
	for i := 1; i < len(c.Risk.Ladder); i++ {
		if c.Risk.Ladder[i] <= c.Risk.Ladder[i-1] {
			return fmt.Errorf("risk ladder must be strictly increasing at index %d", i)
		}
	}
	if c.Pairs.Threshold < 0 || c.Pairs.Threshold > 1 {
		return fmt.Errorf("pairs threshold %v out of [0,1]", c.Pairs.Threshold)
	}
	return nil
}
