// Package config holds every tunable of the decision engine in one typed,
// defaulted struct. Loading and validation happen once at startup; the
// decision functions never re-check knob sanity.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Mode selects the executor backing the engine.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Recommendation gating modes for the entry gate.
const (
	RecGatingStrict = "strict"
	RecGatingLoose  = "loose"
)

// Config is the full knob set referenced by the sizing, entry, exit, state
// and executor components. Money-denominated knobs are decimal; ratios and
// probabilities are float64.
type Config struct {
	Mode         string
	PollInterval time.Duration

	// Sizing.
	StartingBalance decimal.Decimal
	StakePct        float64
	ContractSize    decimal.Decimal
	MinTradeUSD     decimal.Decimal
	MaxTradeUSD     decimal.Decimal

	// Entry gate.
	RecGating               string
	MinEntrySecondsToSettle float64
	MinWarmupCandles        int
	WinCooldown             time.Duration
	LossCooldown            time.Duration
	FridayCutoffHour        int // UTC hour; -1 disables
	SundayOpenHour          int // UTC hour; -1 disables
	MinLiquidity            decimal.Decimal
	MaxSpread               decimal.Decimal
	MinMarketVolume         decimal.Decimal
	MinBTCVolume            float64
	MinBTCVolumeRatio       float64
	MinConfidence           float64
	MinRangePct             float64
	MinImpulsePct           float64
	RSIDeadZoneLow          float64
	RSIDeadZoneHigh         float64
	MinEntryPrice           decimal.Decimal
	MaxEntryPrice           decimal.Decimal
	AbsMinPrice             decimal.Decimal
	AbsMaxPrice             decimal.Decimal
	MinOpposingPrice        decimal.Decimal

	// Weekend-tightened minimums, applied Saturday and Sunday only.
	WeekendMinLiquidity  decimal.Decimal
	WeekendMaxSpread     decimal.Decimal
	WeekendMinRangePct   float64
	WeekendMinConfidence float64

	// Phase probability/edge thresholds and additive boosts.
	ProbEarly         float64
	ProbMid           float64
	ProbLate          float64
	EdgeEarly         float64
	EdgeMid           float64
	EdgeLate          float64
	WeekendProbBoost  float64
	MidPhaseBoost     float64
	InferredSideBoost float64

	// Session risk.
	MaxConsecutiveLosses int
	BreakerCooldown      time.Duration
	DailyLossLimit       decimal.Decimal
	SkipSlugAfterMaxLoss bool

	// Exits.
	MinExitSecondsToSettle   float64
	MaxLossUSDPerTrade       decimal.Decimal
	DynamicMaxLoss           bool
	MaxLossPct               float64
	MaxLossFloorUSD          decimal.Decimal
	MaxLossCeilUSD           decimal.Decimal
	GraceEnabled             bool
	GracePeriod              time.Duration
	GraceRecoveryUSD         decimal.Decimal
	GraceMinSecondsToSettle  float64
	GraceMinLiquidity        decimal.Decimal
	GraceRequireModelSupport bool
	TakeProfitPriceCeil      decimal.Decimal
	TrailingEnabled          bool
	TrailingStartUSD         decimal.Decimal
	TrailingDrawdownUSD      decimal.Decimal
	TakeProfitUSD            decimal.Decimal
	MaxHold                  time.Duration
	StopLossPct              float64
	FlipMargin               float64
	FlipMinProb              float64

	// Live executor.
	MinShareSize         decimal.Decimal
	MinOrderPrice        decimal.Decimal
	MaxOrderPrice        decimal.Decimal
	ExitRetryCooldown    time.Duration
	TradeRefreshInterval time.Duration
	FeeRateBps           float64

	// Collaborators.
	VenueBaseURL string
	FeedURL      string
	APIAddr      string
	LedgerPath   string
	LogLevel     string
	LogFile      string
}

// Default returns the engine defaults. Every knob has a working value so a
// paper session runs with an empty config file.
func Default() Config {
	return Config{
		Mode:         ModePaper,
		PollInterval: 5 * time.Second,

		StartingBalance: decimal.NewFromInt(1000),
		StakePct:        0,
		ContractSize:    decimal.NewFromInt(100),
		MinTradeUSD:     decimal.NewFromInt(5),
		MaxTradeUSD:     decimal.NewFromInt(250),

		RecGating:               RecGatingStrict,
		MinEntrySecondsToSettle: 90,
		MinWarmupCandles:        20,
		WinCooldown:             45 * time.Second,
		LossCooldown:            5 * time.Minute,
		FridayCutoffHour:        -1,
		SundayOpenHour:          -1,
		MinLiquidity:            decimal.NewFromInt(300),
		MaxSpread:               decimal.RequireFromString("0.04"),
		MinMarketVolume:         decimal.NewFromInt(500),
		MinBTCVolume:            0,
		MinBTCVolumeRatio:       0,
		MinConfidence:           0.58,
		MinRangePct:             0.0004,
		MinImpulsePct:           0,
		RSIDeadZoneLow:          47,
		RSIDeadZoneHigh:         53,
		MinEntryPrice:           decimal.RequireFromString("0.35"),
		MaxEntryPrice:           decimal.RequireFromString("0.78"),
		AbsMinPrice:             decimal.RequireFromString("0.02"),
		AbsMaxPrice:             decimal.RequireFromString("0.98"),
		MinOpposingPrice:        decimal.RequireFromString("0.04"),

		WeekendMinLiquidity:  decimal.NewFromInt(500),
		WeekendMaxSpread:     decimal.RequireFromString("0.03"),
		WeekendMinRangePct:   0.0006,
		WeekendMinConfidence: 0.62,

		ProbEarly:         0.60,
		ProbMid:           0.63,
		ProbLate:          0.67,
		EdgeEarly:         0.02,
		EdgeMid:           0.03,
		EdgeLate:          0.04,
		WeekendProbBoost:  0.02,
		MidPhaseBoost:     0.01,
		InferredSideBoost: 0.02,

		MaxConsecutiveLosses: 3,
		BreakerCooldown:      20 * time.Minute,
		DailyLossLimit:       decimal.NewFromInt(60),
		SkipSlugAfterMaxLoss: true,

		MinExitSecondsToSettle:   20,
		MaxLossUSDPerTrade:       decimal.NewFromInt(15),
		DynamicMaxLoss:           true,
		MaxLossPct:               0.15,
		MaxLossFloorUSD:          decimal.NewFromInt(8),
		MaxLossCeilUSD:           decimal.NewFromInt(30),
		GraceEnabled:             true,
		GracePeriod:              25 * time.Second,
		GraceRecoveryUSD:         decimal.NewFromInt(-5),
		GraceMinSecondsToSettle:  60,
		GraceMinLiquidity:        decimal.NewFromInt(200),
		GraceRequireModelSupport: true,
		TakeProfitPriceCeil:      decimal.RequireFromString("0.97"),
		TrailingEnabled:          true,
		TrailingStartUSD:         decimal.NewFromInt(20),
		TrailingDrawdownUSD:      decimal.NewFromInt(10),
		TakeProfitUSD:            decimal.NewFromInt(18),
		MaxHold:                  3 * time.Minute,
		StopLossPct:              0.25,
		FlipMargin:               0.10,
		FlipMinProb:              0.55,

		MinShareSize:         decimal.NewFromInt(5),
		MinOrderPrice:        decimal.RequireFromString("0.01"),
		MaxOrderPrice:        decimal.RequireFromString("0.99"),
		ExitRetryCooldown:    30 * time.Second,
		TradeRefreshInterval: 15 * time.Second,
		FeeRateBps:           0,

		VenueBaseURL: "https://clob.polymarket.com",
		FeedURL:      "http://127.0.0.1:8090/snapshot",
		APIAddr:      ":8085",
		LedgerPath:   "updown.db",
		LogLevel:     "info",
	}
}

// fileConfig is the YAML shape. Money knobs arrive as floats and duration
// knobs as Go duration strings; both convert into the typed Config.
type fileConfig struct {
	Mode         string `yaml:"mode"`
	PollInterval string `yaml:"poll_interval"`

	StartingBalance *float64 `yaml:"starting_balance"`
	StakePct        *float64 `yaml:"stake_pct"`
	ContractSize    *float64 `yaml:"contract_size"`
	MinTradeUSD     *float64 `yaml:"min_trade_usd"`
	MaxTradeUSD     *float64 `yaml:"max_trade_usd"`

	RecGating               string   `yaml:"rec_gating"`
	MinEntrySecondsToSettle *float64 `yaml:"min_entry_seconds_to_settle"`
	MinWarmupCandles        *int     `yaml:"min_warmup_candles"`
	WinCooldown             string   `yaml:"win_cooldown"`
	LossCooldown            string   `yaml:"loss_cooldown"`
	FridayCutoffHour        *int     `yaml:"friday_cutoff_hour"`
	SundayOpenHour          *int     `yaml:"sunday_open_hour"`
	MinLiquidity            *float64 `yaml:"min_liquidity"`
	MaxSpread               *float64 `yaml:"max_spread"`
	MinMarketVolume         *float64 `yaml:"min_market_volume"`
	MinBTCVolume            *float64 `yaml:"min_btc_volume"`
	MinBTCVolumeRatio       *float64 `yaml:"min_btc_volume_ratio"`
	MinConfidence           *float64 `yaml:"min_confidence"`
	MinRangePct             *float64 `yaml:"min_range_pct"`
	MinImpulsePct           *float64 `yaml:"min_impulse_pct"`
	RSIDeadZoneLow          *float64 `yaml:"rsi_dead_zone_low"`
	RSIDeadZoneHigh         *float64 `yaml:"rsi_dead_zone_high"`
	MinEntryPrice           *float64 `yaml:"min_entry_price"`
	MaxEntryPrice           *float64 `yaml:"max_entry_price"`
	AbsMinPrice             *float64 `yaml:"abs_min_price"`
	AbsMaxPrice             *float64 `yaml:"abs_max_price"`
	MinOpposingPrice        *float64 `yaml:"min_opposing_price"`

	WeekendMinLiquidity  *float64 `yaml:"weekend_min_liquidity"`
	WeekendMaxSpread     *float64 `yaml:"weekend_max_spread"`
	WeekendMinRangePct   *float64 `yaml:"weekend_min_range_pct"`
	WeekendMinConfidence *float64 `yaml:"weekend_min_confidence"`

	ProbEarly         *float64 `yaml:"prob_early"`
	ProbMid           *float64 `yaml:"prob_mid"`
	ProbLate          *float64 `yaml:"prob_late"`
	EdgeEarly         *float64 `yaml:"edge_early"`
	EdgeMid           *float64 `yaml:"edge_mid"`
	EdgeLate          *float64 `yaml:"edge_late"`
	WeekendProbBoost  *float64 `yaml:"weekend_prob_boost"`
	MidPhaseBoost     *float64 `yaml:"mid_phase_boost"`
	InferredSideBoost *float64 `yaml:"inferred_side_boost"`

	MaxConsecutiveLosses *int     `yaml:"max_consecutive_losses"`
	BreakerCooldown      string   `yaml:"breaker_cooldown"`
	DailyLossLimit       *float64 `yaml:"daily_loss_limit"`
	SkipSlugAfterMaxLoss *bool    `yaml:"skip_slug_after_max_loss"`

	MinExitSecondsToSettle   *float64 `yaml:"min_exit_seconds_to_settle"`
	MaxLossUSDPerTrade       *float64 `yaml:"max_loss_usd_per_trade"`
	DynamicMaxLoss           *bool    `yaml:"dynamic_max_loss"`
	MaxLossPct               *float64 `yaml:"max_loss_pct"`
	MaxLossFloorUSD          *float64 `yaml:"max_loss_floor_usd"`
	MaxLossCeilUSD           *float64 `yaml:"max_loss_ceil_usd"`
	GraceEnabled             *bool    `yaml:"grace_enabled"`
	GracePeriod              string   `yaml:"grace_period"`
	GraceRecoveryUSD         *float64 `yaml:"grace_recovery_usd"`
	GraceMinSecondsToSettle  *float64 `yaml:"grace_min_seconds_to_settle"`
	GraceMinLiquidity        *float64 `yaml:"grace_min_liquidity"`
	GraceRequireModelSupport *bool    `yaml:"grace_require_model_support"`
	TakeProfitPriceCeil      *float64 `yaml:"take_profit_price_ceil"`
	TrailingEnabled          *bool    `yaml:"trailing_enabled"`
	TrailingStartUSD         *float64 `yaml:"trailing_start_usd"`
	TrailingDrawdownUSD      *float64 `yaml:"trailing_drawdown_usd"`
	TakeProfitUSD            *float64 `yaml:"take_profit_usd"`
	MaxHold                  string   `yaml:"max_hold"`
	StopLossPct              *float64 `yaml:"stop_loss_pct"`
	FlipMargin               *float64 `yaml:"flip_margin"`
	FlipMinProb              *float64 `yaml:"flip_min_prob"`

	MinShareSize         *float64 `yaml:"min_share_size"`
	MinOrderPrice        *float64 `yaml:"min_order_price"`
	MaxOrderPrice        *float64 `yaml:"max_order_price"`
	ExitRetryCooldown    string   `yaml:"exit_retry_cooldown"`
	TradeRefreshInterval string   `yaml:"trade_refresh_interval"`
	FeeRateBps           *float64 `yaml:"fee_rate_bps"`

	VenueBaseURL string `yaml:"venue_base_url"`
	FeedURL      string `yaml:"feed_url"`
	APIAddr      string `yaml:"api_addr"`
	LedgerPath   string `yaml:"ledger_path"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
}

// Load reads a YAML file over the defaults, applies env overrides, and
// validates the result. A missing file is not an error: defaults + env.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
			if err := fc.apply(&cfg); err != nil {
				return cfg, err
			}
		}
	}

	cfg = cfg.MergeEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setStr := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setDur := func(dst *time.Duration, v, name string) error {
		if strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = d
		return nil
	}
	setDec := func(dst *decimal.Decimal, v *float64) {
		if v != nil {
			*dst = decimal.NewFromFloat(*v)
		}
	}
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setI := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setB := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setStr(&cfg.Mode, fc.Mode)
	if err := setDur(&cfg.PollInterval, fc.PollInterval, "poll_interval"); err != nil {
		return err
	}

	setDec(&cfg.StartingBalance, fc.StartingBalance)
	setF(&cfg.StakePct, fc.StakePct)
	setDec(&cfg.ContractSize, fc.ContractSize)
	setDec(&cfg.MinTradeUSD, fc.MinTradeUSD)
	setDec(&cfg.MaxTradeUSD, fc.MaxTradeUSD)

	setStr(&cfg.RecGating, fc.RecGating)
	setF(&cfg.MinEntrySecondsToSettle, fc.MinEntrySecondsToSettle)
	setI(&cfg.MinWarmupCandles, fc.MinWarmupCandles)
	if err := setDur(&cfg.WinCooldown, fc.WinCooldown, "win_cooldown"); err != nil {
		return err
	}
	if err := setDur(&cfg.LossCooldown, fc.LossCooldown, "loss_cooldown"); err != nil {
		return err
	}
	setI(&cfg.FridayCutoffHour, fc.FridayCutoffHour)
	setI(&cfg.SundayOpenHour, fc.SundayOpenHour)
	setDec(&cfg.MinLiquidity, fc.MinLiquidity)
	setDec(&cfg.MaxSpread, fc.MaxSpread)
	setDec(&cfg.MinMarketVolume, fc.MinMarketVolume)
	setF(&cfg.MinBTCVolume, fc.MinBTCVolume)
	setF(&cfg.MinBTCVolumeRatio, fc.MinBTCVolumeRatio)
	setF(&cfg.MinConfidence, fc.MinConfidence)
	setF(&cfg.MinRangePct, fc.MinRangePct)
	setF(&cfg.MinImpulsePct, fc.MinImpulsePct)
	setF(&cfg.RSIDeadZoneLow, fc.RSIDeadZoneLow)
	setF(&cfg.RSIDeadZoneHigh, fc.RSIDeadZoneHigh)
	setDec(&cfg.MinEntryPrice, fc.MinEntryPrice)
	setDec(&cfg.MaxEntryPrice, fc.MaxEntryPrice)
	setDec(&cfg.AbsMinPrice, fc.AbsMinPrice)
	setDec(&cfg.AbsMaxPrice, fc.AbsMaxPrice)
	setDec(&cfg.MinOpposingPrice, fc.MinOpposingPrice)

	setDec(&cfg.WeekendMinLiquidity, fc.WeekendMinLiquidity)
	setDec(&cfg.WeekendMaxSpread, fc.WeekendMaxSpread)
	setF(&cfg.WeekendMinRangePct, fc.WeekendMinRangePct)
	setF(&cfg.WeekendMinConfidence, fc.WeekendMinConfidence)

	setF(&cfg.ProbEarly, fc.ProbEarly)
	setF(&cfg.ProbMid, fc.ProbMid)
	setF(&cfg.ProbLate, fc.ProbLate)
	setF(&cfg.EdgeEarly, fc.EdgeEarly)
	setF(&cfg.EdgeMid, fc.EdgeMid)
	setF(&cfg.EdgeLate, fc.EdgeLate)
	setF(&cfg.WeekendProbBoost, fc.WeekendProbBoost)
	setF(&cfg.MidPhaseBoost, fc.MidPhaseBoost)
	setF(&cfg.InferredSideBoost, fc.InferredSideBoost)

	setI(&cfg.MaxConsecutiveLosses, fc.MaxConsecutiveLosses)
	if err := setDur(&cfg.BreakerCooldown, fc.BreakerCooldown, "breaker_cooldown"); err != nil {
		return err
	}
	setDec(&cfg.DailyLossLimit, fc.DailyLossLimit)
	setB(&cfg.SkipSlugAfterMaxLoss, fc.SkipSlugAfterMaxLoss)

	setF(&cfg.MinExitSecondsToSettle, fc.MinExitSecondsToSettle)
	setDec(&cfg.MaxLossUSDPerTrade, fc.MaxLossUSDPerTrade)
	setB(&cfg.DynamicMaxLoss, fc.DynamicMaxLoss)
	setF(&cfg.MaxLossPct, fc.MaxLossPct)
	setDec(&cfg.MaxLossFloorUSD, fc.MaxLossFloorUSD)
	setDec(&cfg.MaxLossCeilUSD, fc.MaxLossCeilUSD)
	setB(&cfg.GraceEnabled, fc.GraceEnabled)
	if err := setDur(&cfg.GracePeriod, fc.GracePeriod, "grace_period"); err != nil {
		return err
	}
	setDec(&cfg.GraceRecoveryUSD, fc.GraceRecoveryUSD)
	setF(&cfg.GraceMinSecondsToSettle, fc.GraceMinSecondsToSettle)
	setDec(&cfg.GraceMinLiquidity, fc.GraceMinLiquidity)
	setB(&cfg.GraceRequireModelSupport, fc.GraceRequireModelSupport)
	setDec(&cfg.TakeProfitPriceCeil, fc.TakeProfitPriceCeil)
	setB(&cfg.TrailingEnabled, fc.TrailingEnabled)
	setDec(&cfg.TrailingStartUSD, fc.TrailingStartUSD)
	setDec(&cfg.TrailingDrawdownUSD, fc.TrailingDrawdownUSD)
	setDec(&cfg.TakeProfitUSD, fc.TakeProfitUSD)
	if err := setDur(&cfg.MaxHold, fc.MaxHold, "max_hold"); err != nil {
		return err
	}
	setF(&cfg.StopLossPct, fc.StopLossPct)
	setF(&cfg.FlipMargin, fc.FlipMargin)
	setF(&cfg.FlipMinProb, fc.FlipMinProb)

	setDec(&cfg.MinShareSize, fc.MinShareSize)
	setDec(&cfg.MinOrderPrice, fc.MinOrderPrice)
	setDec(&cfg.MaxOrderPrice, fc.MaxOrderPrice)
	if err := setDur(&cfg.ExitRetryCooldown, fc.ExitRetryCooldown, "exit_retry_cooldown"); err != nil {
		return err
	}
	if err := setDur(&cfg.TradeRefreshInterval, fc.TradeRefreshInterval, "trade_refresh_interval"); err != nil {
		return err
	}
	setF(&cfg.FeeRateBps, fc.FeeRateBps)

	setStr(&cfg.VenueBaseURL, fc.VenueBaseURL)
	setStr(&cfg.FeedURL, fc.FeedURL)
	setStr(&cfg.APIAddr, fc.APIAddr)
	setStr(&cfg.LedgerPath, fc.LedgerPath)
	setStr(&cfg.LogLevel, fc.LogLevel)
	setStr(&cfg.LogFile, fc.LogFile)
	return nil
}

// MergeEnv overlays the operational env vars. Only knobs ops actually flip
// at runtime get an env hook.
func (c Config) MergeEnv() Config {
	if v := strings.TrimSpace(os.Getenv("UPDOWN_MODE")); v != "" {
		c.Mode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("UPDOWN_STAKE_PCT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.StakePct = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("UPDOWN_CONTRACT_SIZE")); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			c.ContractSize = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("UPDOWN_DAILY_LOSS_LIMIT")); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			c.DailyLossLimit = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("UPDOWN_VENUE_URL")); v != "" {
		c.VenueBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("UPDOWN_FEED_URL")); v != "" {
		c.FeedURL = v
	}
	if v := strings.TrimSpace(os.Getenv("UPDOWN_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	return c
}

// Validate rejects inconsistent knob combinations before any tick runs.
func (c Config) Validate() error {
	if c.Mode != ModePaper && c.Mode != ModeLive {
		return fmt.Errorf("mode must be %q or %q", ModePaper, ModeLive)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0")
	}
	if c.RecGating != RecGatingStrict && c.RecGating != RecGatingLoose {
		return fmt.Errorf("rec gating must be %q or %q", RecGatingStrict, RecGatingLoose)
	}
	if c.ContractSize.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("contract size must be > 0")
	}
	if c.StakePct < 0 || c.StakePct > 1 {
		return fmt.Errorf("stake pct must be in [0,1]")
	}
	if c.MinTradeUSD.LessThanOrEqual(decimal.Zero) || c.MaxTradeUSD.LessThan(c.MinTradeUSD) {
		return fmt.Errorf("trade size bounds invalid: min=%s max=%s", c.MinTradeUSD, c.MaxTradeUSD)
	}
	if c.MinEntryPrice.GreaterThanOrEqual(c.MaxEntryPrice) {
		return fmt.Errorf("entry price bounds invalid: min=%s max=%s", c.MinEntryPrice, c.MaxEntryPrice)
	}
	if c.AbsMinPrice.GreaterThanOrEqual(c.AbsMaxPrice) {
		return fmt.Errorf("absolute price bounds invalid")
	}
	if c.RSIDeadZoneLow > c.RSIDeadZoneHigh {
		return fmt.Errorf("rsi dead zone inverted: low=%.1f high=%.1f", c.RSIDeadZoneLow, c.RSIDeadZoneHigh)
	}
	if c.FridayCutoffHour > 23 || c.SundayOpenHour > 23 {
		return fmt.Errorf("schedule hours must be < 24")
	}
	if c.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("max consecutive losses must be > 0")
	}
	if c.DynamicMaxLoss {
		if c.MaxLossPct <= 0 {
			return fmt.Errorf("dynamic max loss requires max loss pct > 0")
		}
		if c.MaxLossFloorUSD.GreaterThan(c.MaxLossCeilUSD) {
			return fmt.Errorf("max loss floor exceeds ceiling")
		}
	} else if c.MaxLossUSDPerTrade.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("fixed max loss must be > 0")
	}
	if c.GraceEnabled && c.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be > 0 when grace is enabled")
	}
	if c.TrailingEnabled && c.TrailingDrawdownUSD.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("trailing drawdown must be > 0")
	}
	if c.Mode == ModeLive && c.VenueBaseURL == "" {
		return fmt.Errorf("live mode requires a venue base URL")
	}
	return nil
}

// IsWeekend reports whether t (UTC) falls on the tightened-threshold days.
func IsWeekend(t time.Time) bool {
	d := t.UTC().Weekday()
	return d == time.Saturday || d == time.Sunday
}
