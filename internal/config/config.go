package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the exchange simulator.
type Config struct {
	Port            int
	LogLevel        string
	DataDir         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Market movement policy.
	TickInterval     time.Duration
	TickMinChange    float64
	TickMaxChange    float64
	BuyMinChange     float64
	BuyMaxChange     float64
	SellMinChange    float64
	SellMaxChange    float64
	NewStockMinPrice float64
	NewStockMaxPrice float64
	PriceFloor       float64
	SellingFee       float64

	// Listing economics.
	IPOCost         float64
	StartingBalance float64
	SeedSymbols     []string

	// Decay policy.
	DecayThreshold           int
	DecayPercent             float64
	BankruptcyPriceThreshold float64
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg.LogLevel = getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	cfg.DataDir = getStr("DATA_DIR", "data")

	if cfg.ReadTimeout, err = getDuration("READ_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	if cfg.WriteTimeout, err = getDuration("WRITE_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	if cfg.IdleTimeout, err = getDuration("IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	if cfg.TickInterval, err = getDuration("TICK_INTERVAL", 45*time.Minute); err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if cfg.TickMinChange, err = getFloat("TICK_MIN_CHANGE", -3); err != nil {
		return nil, fmt.Errorf("invalid TICK_MIN_CHANGE: %w", err)
	}
	if cfg.TickMaxChange, err = getFloat("TICK_MAX_CHANGE", 3); err != nil {
		return nil, fmt.Errorf("invalid TICK_MAX_CHANGE: %w", err)
	}
	if cfg.BuyMinChange, err = getFloat("BUY_MIN_CHANGE", 3); err != nil {
		return nil, fmt.Errorf("invalid BUY_MIN_CHANGE: %w", err)
	}
	if cfg.BuyMaxChange, err = getFloat("BUY_MAX_CHANGE", 9); err != nil {
		return nil, fmt.Errorf("invalid BUY_MAX_CHANGE: %w", err)
	}
	if cfg.SellMinChange, err = getFloat("SELL_MIN_CHANGE", 3); err != nil {
		return nil, fmt.Errorf("invalid SELL_MIN_CHANGE: %w", err)
	}
	if cfg.SellMaxChange, err = getFloat("SELL_MAX_CHANGE", 9); err != nil {
		return nil, fmt.Errorf("invalid SELL_MAX_CHANGE: %w", err)
	}
	if cfg.NewStockMinPrice, err = getFloat("NEW_STOCK_MIN_PRICE", 80); err != nil {
		return nil, fmt.Errorf("invalid NEW_STOCK_MIN_PRICE: %w", err)
	}
	if cfg.NewStockMaxPrice, err = getFloat("NEW_STOCK_MAX_PRICE", 90); err != nil {
		return nil, fmt.Errorf("invalid NEW_STOCK_MAX_PRICE: %w", err)
	}
	if cfg.PriceFloor, err = getFloat("PRICE_FLOOR", 1); err != nil {
		return nil, fmt.Errorf("invalid PRICE_FLOOR: %w", err)
	}
	if cfg.SellingFee, err = getFloat("SELLING_FEE", 7); err != nil {
		return nil, fmt.Errorf("invalid SELLING_FEE: %w", err)
	}

	if cfg.IPOCost, err = getFloat("IPO_COST", 1000); err != nil {
		return nil, fmt.Errorf("invalid IPO_COST: %w", err)
	}
	if cfg.StartingBalance, err = getFloat("STARTING_BALANCE", 50); err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}
	cfg.SeedSymbols = getList("SEED_SYMBOLS")

	if cfg.DecayThreshold, err = getInt("DECAY_THRESHOLD", 15); err != nil {
		return nil, fmt.Errorf("invalid DECAY_THRESHOLD: %w", err)
	}
	if cfg.DecayPercent, err = getFloat("DECAY_PERCENT", 5); err != nil {
		return nil, fmt.Errorf("invalid DECAY_PERCENT: %w", err)
	}
	if cfg.BankruptcyPriceThreshold, err = getFloat("BANKRUPTCY_PRICE_THRESHOLD", 1); err != nil {
		return nil, fmt.Errorf("invalid BANKRUPTCY_PRICE_THRESHOLD: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks cross-field constraints on the market policy.
func (c *Config) validate() error {
	bands := []struct {
		name   string
		lo, hi float64
	}{
		{"TICK_MIN_CHANGE/TICK_MAX_CHANGE", c.TickMinChange, c.TickMaxChange},
		{"BUY_MIN_CHANGE/BUY_MAX_CHANGE", c.BuyMinChange, c.BuyMaxChange},
		{"SELL_MIN_CHANGE/SELL_MAX_CHANGE", c.SellMinChange, c.SellMaxChange},
		{"NEW_STOCK_MIN_PRICE/NEW_STOCK_MAX_PRICE", c.NewStockMinPrice, c.NewStockMaxPrice},
	}
	for _, b := range bands {
		if b.lo > b.hi {
			return fmt.Errorf("invalid %s: min %v > max %v", b.name, b.lo, b.hi)
		}
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("invalid TICK_INTERVAL: must be positive, got %v", c.TickInterval)
	}
	if c.PriceFloor <= 0 {
		return fmt.Errorf("invalid PRICE_FLOOR: must be positive, got %v", c.PriceFloor)
	}
	if c.NewStockMinPrice <= 0 {
		return fmt.Errorf("invalid NEW_STOCK_MIN_PRICE: must be positive, got %v", c.NewStockMinPrice)
	}
	if c.SellingFee < 0 {
		return fmt.Errorf("invalid SELLING_FEE: must be non-negative, got %v", c.SellingFee)
	}
	if c.IPOCost < 0 {
		return fmt.Errorf("invalid IPO_COST: must be non-negative, got %v", c.IPOCost)
	}
	if c.DecayThreshold < 0 {
		return fmt.Errorf("invalid DECAY_THRESHOLD: must be non-negative, got %d", c.DecayThreshold)
	}
	if c.DecayPercent < 0 || c.DecayPercent > 100 {
		return fmt.Errorf("invalid DECAY_PERCENT: must be in [0, 100], got %v", c.DecayPercent)
	}
	if c.BankruptcyPriceThreshold < 0 {
		return fmt.Errorf("invalid BANKRUPTCY_PRICE_THRESHOLD: must be non-negative, got %v", c.BankruptcyPriceThreshold)
	}
	return nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
