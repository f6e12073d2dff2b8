// Package config is the validation boundary: everything past Load is a
// checked positive integer or known enum, and the core never
// re-validates.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crossbot/internal/gateway"
)

type Mode string

const (
	// ModeSim trades against the in-process simulated gateway.
	ModeSim Mode = "sim"
	// ModeAlpaca trades against the brokerage paper API.
	ModeAlpaca Mode = "alpaca"
)

type Config struct {
	Mode Mode

	Symbol   string
	SecType  string
	Exchange string
	Currency string

	ShortWindow int
	LongWindow  int
	Quantity    int
	MaxSamples  int

	GatewayHost string
	GatewayPort int
	ClientID    int

	Feed      string
	BaseURL   string
	APIKey    string
	APISecret string

	MetricsAddr   string
	DecisionsPath string
	LogLevel      string
}

// Instrument assembles the configured contract identity.
func (c Config) Instrument() gateway.Instrument {
	return gateway.Instrument{
		Symbol:   c.Symbol,
		SecType:  c.SecType,
		Exchange: c.Exchange,
		Currency: c.Currency,
	}
}

// Load resolves configuration with CLI flags taking precedence over the
// optional YAML file, and environment variables (optionally seeded from
// .env) supplying credentials.
func Load() (Config, error) {
	var cfg Config
	var mode string
	var configPath string

	loadDotEnvIfPresent(".env")

	flag.StringVar(&configPath, "config", "", "optional YAML config file")
	flag.StringVar(&mode, "mode", string(ModeSim), "run mode: sim or alpaca")
	flag.StringVar(&cfg.Symbol, "symbol", "AAPL", "instrument symbol")
	flag.StringVar(&cfg.SecType, "sec-type", "STK", "instrument security type")
	flag.StringVar(&cfg.Exchange, "exchange", "SMART", "instrument exchange")
	flag.StringVar(&cfg.Currency, "currency", "USD", "instrument currency")
	flag.IntVar(&cfg.ShortWindow, "short-window", 3, "short moving average window")
	flag.IntVar(&cfg.LongWindow, "long-window", 10, "long moving average window")
	flag.IntVar(&cfg.Quantity, "quantity", 100, "fixed order quantity")
	flag.IntVar(&cfg.MaxSamples, "max-samples", 0, "retained price samples, 0 keeps all")
	flag.StringVar(&cfg.GatewayHost, "gateway-host", "127.0.0.1", "trading gateway host")
	flag.IntVar(&cfg.GatewayPort, "gateway-port", 7497, "trading gateway port")
	flag.IntVar(&cfg.ClientID, "client-id", 0, "trading gateway client id")
	flag.StringVar(&cfg.Feed, "feed", "iex", "market data feed: iex or sip")
	flag.StringVar(&cfg.BaseURL, "base-url", "https://paper-api.alpaca.markets", "brokerage base URL")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", ":9100", "prometheus listen address")
	flag.StringVar(&cfg.DecisionsPath, "decisions-path", "decisions.ndjson", "path to decision journal")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	flag.Parse()

	cfg.Mode = Mode(mode)
	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")

	if configPath != "" {
		if err := applyFile(&cfg, configPath, explicitFlags()); err != nil {
			return cfg, err
		}
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with pointer fields so absent keys are
// distinguishable from zero values.
type fileConfig struct {
	Mode        *string `yaml:"mode"`
	Symbol      *string `yaml:"symbol"`
	SecType     *string `yaml:"sec_type"`
	Exchange    *string `yaml:"exchange"`
	Currency    *string `yaml:"currency"`
	ShortWindow *int    `yaml:"short_window"`
	LongWindow  *int    `yaml:"long_window"`
	Quantity    *int    `yaml:"quantity"`
	MaxSamples  *int    `yaml:"max_samples"`
	GatewayHost *string `yaml:"gateway_host"`
	GatewayPort *int    `yaml:"gateway_port"`
	ClientID    *int    `yaml:"client_id"`
	Feed        *string `yaml:"feed"`
	BaseURL     *string `yaml:"base_url"`
	MetricsAddr *string `yaml:"metrics_addr"`
	Decisions   *string `yaml:"decisions_path"`
	LogLevel    *string `yaml:"log_level"`
}

// applyFile overlays file values onto cfg for every field whose flag was
// not passed explicitly: CLI beats file, file beats defaults.
func applyFile(cfg *Config, path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	applyString := func(name string, dst *string, src *string) {
		if src != nil && !set[name] {
			*dst = *src
		}
	}
	applyInt := func(name string, dst *int, src *int) {
		if src != nil && !set[name] {
			*dst = *src
		}
	}

	if fc.Mode != nil && !set["mode"] {
		cfg.Mode = Mode(*fc.Mode)
	}
	applyString("symbol", &cfg.Symbol, fc.Symbol)
	applyString("sec-type", &cfg.SecType, fc.SecType)
	applyString("exchange", &cfg.Exchange, fc.Exchange)
	applyString("currency", &cfg.Currency, fc.Currency)
	applyInt("short-window", &cfg.ShortWindow, fc.ShortWindow)
	applyInt("long-window", &cfg.LongWindow, fc.LongWindow)
	applyInt("quantity", &cfg.Quantity, fc.Quantity)
	applyInt("max-samples", &cfg.MaxSamples, fc.MaxSamples)
	applyString("gateway-host", &cfg.GatewayHost, fc.GatewayHost)
	applyInt("gateway-port", &cfg.GatewayPort, fc.GatewayPort)
	applyInt("client-id", &cfg.ClientID, fc.ClientID)
	applyString("feed", &cfg.Feed, fc.Feed)
	applyString("base-url", &cfg.BaseURL, fc.BaseURL)
	applyString("metrics-addr", &cfg.MetricsAddr, fc.MetricsAddr)
	applyString("decisions-path", &cfg.DecisionsPath, fc.Decisions)
	applyString("log-level", &cfg.LogLevel, fc.LogLevel)
	return nil
}

func explicitFlags() map[string]bool {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func validate(cfg Config) error {
	if cfg.Mode != ModeSim && cfg.Mode != ModeAlpaca {
		return fmt.Errorf("invalid mode: %s", cfg.Mode)
	}
	if cfg.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if cfg.ShortWindow <= 0 {
		return fmt.Errorf("short-window must be > 0")
	}
	if cfg.LongWindow < cfg.ShortWindow {
		return fmt.Errorf("long-window must be >= short-window")
	}
	if cfg.Quantity <= 0 {
		return fmt.Errorf("quantity must be > 0")
	}
	if cfg.MaxSamples < 0 {
		return fmt.Errorf("max-samples must be >= 0")
	}
	if cfg.MaxSamples > 0 && cfg.MaxSamples < cfg.LongWindow {
		return fmt.Errorf("max-samples must be 0 or >= long-window")
	}
	if cfg.GatewayPort <= 0 || cfg.GatewayPort > 65535 {
		return fmt.Errorf("invalid gateway-port: %d", cfg.GatewayPort)
	}
	if cfg.Mode == ModeAlpaca && (cfg.APIKey == "" || cfg.APISecret == "") {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required in alpaca mode")
	}
	return nil
}
