package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		Mode:        ModeSim,
		Symbol:      "AAPL",
		SecType:     "STK",
		Exchange:    "SMART",
		Currency:    "USD",
		ShortWindow: 3,
		LongWindow:  10,
		Quantity:    100,
		GatewayPort: 7497,
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "replay" }},
		{"empty symbol", func(c *Config) { c.Symbol = "" }},
		{"zero short window", func(c *Config) { c.ShortWindow = 0 }},
		{"long below short", func(c *Config) { c.ShortWindow = 10; c.LongWindow = 3 }},
		{"zero quantity", func(c *Config) { c.Quantity = 0 }},
		{"negative max samples", func(c *Config) { c.MaxSamples = -1 }},
		{"cap below long window", func(c *Config) { c.MaxSamples = 5 }},
		{"bad port", func(c *Config) { c.GatewayPort = 0 }},
		{"alpaca without credentials", func(c *Config) { c.Mode = ModeAlpaca }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	if err := validate(validConfig()); err != nil {
		t.Fatalf("expected config to be valid, got %v", err)
	}

	cfg := validConfig()
	cfg.MaxSamples = 10
	if err := validate(cfg); err != nil {
		t.Fatalf("cap equal to long window must be valid, got %v", err)
	}

	cfg = validConfig()
	cfg.Mode = ModeAlpaca
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	if err := validate(cfg); err != nil {
		t.Fatalf("alpaca mode with credentials must be valid, got %v", err)
	}
}

func TestLoadPrecedenceCLIOverFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	configContents := `symbol: MSFT
short_window: 5
quantity: 25
log_level: debug
`
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "env-secret")

	resetFlags := resetFlagSet(t)
	defer resetFlags()

	os.Args = []string{
		"cmd",
		"-config", configPath,
		"-short-window", "4",
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.ShortWindow != 4 {
		t.Fatalf("expected short window from CLI, got %d", cfg.ShortWindow)
	}
	if cfg.Symbol != "MSFT" {
		t.Fatalf("expected symbol from file, got %q", cfg.Symbol)
	}
	if cfg.Quantity != 25 {
		t.Fatalf("expected quantity from file, got %d", cfg.Quantity)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.LongWindow != 10 {
		t.Fatalf("expected long window default, got %d", cfg.LongWindow)
	}
	if cfg.APIKey != "env-key" || cfg.APISecret != "env-secret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.APIKey, cfg.APISecret)
	}
}

func TestLoadRejectsInvalidFileValues(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("quantity: -1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	resetFlags := resetFlagSet(t)
	defer resetFlags()
	os.Args = []string{"cmd", "-config", configPath}

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error from file value")
	}
}

func TestInstrumentAssemblesContract(t *testing.T) {
	cfg := validConfig()
	instrument := cfg.Instrument()
	if instrument.Symbol != "AAPL" || instrument.SecType != "STK" ||
		instrument.Exchange != "SMART" || instrument.Currency != "USD" {
		t.Fatalf("unexpected instrument: %+v", instrument)
	}
}

func resetFlagSet(t *testing.T) func() {
	t.Helper()
	originalArgs := os.Args
	originalCommandLine := flag.CommandLine
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	return func() {
		flag.CommandLine = originalCommandLine
		os.Args = originalArgs
	}
}
