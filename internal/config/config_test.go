package config

import (
	"log/slog"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DefaultCurrency != "PKR" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DevSeed || cfg.FBR.Enabled() {
		t.Fatalf("dev seed and FBR should be off by default")
	}
	if cfg.ReadTimeout != 5*time.Second || cfg.FBR.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"HTTP_ADDR":        ":9090",
		"DEFAULT_CURRENCY": "usd",
		"DEV_SEED":         "yes",
		"LOG_LEVEL":        "DEBUG",
		"LOG_FORMAT":       "text",
		"FBR_URL":          "https://gw.fbr.gov.pk/di_data/v1/di/postinvoicedata",
		"FBR_TOKEN":        "secret",
		"FBR_TIMEOUT":      "3s",
		"FBR_SELLER_NTN":   "1234567",
		"FBR_SELLER_NAME":  "Indus Traders",
	}))
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.DefaultCurrency != "USD" || !cfg.DevSeed {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
	if !cfg.FBR.Enabled() || cfg.FBR.Timeout != 3*time.Second || cfg.FBR.Seller.NTN != "1234567" {
		t.Fatalf("unexpected FBR config: %+v", cfg.FBR)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"currency":     {"DEFAULT_CURRENCY": "XYZ"},
		"log format":   {"LOG_FORMAT": "yaml"},
		"duration":     {"HTTP_READ_TIMEOUT": "soon"},
		"dev seed":     {"DEV_SEED": "maybe"},
		"fbr no token": {"FBR_URL": "https://example.test", "FBR_SELLER_NTN": "1", "FBR_SELLER_NAME": "x"},
		"fbr no ntn":   {"FBR_URL": "https://example.test", "FBR_TOKEN": "t", "FBR_SELLER_NAME": "x"},
	}
	for name, m := range cases {
		if _, err := FromEnv(env(m)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
