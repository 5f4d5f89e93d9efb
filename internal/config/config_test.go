package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.App.Port)
	}
	if cfg.Email.BaseURL == "" {
		t.Error("email base URL must default")
	}
	if cfg.Email.WebhookTolerance() <= 0 {
		t.Error("webhook tolerance must be positive")
	}
	if cfg.Email.WebhookDedupTTL() <= 0 {
		t.Error("dedup TTL must be positive")
	}
}

func TestLoad_ProductionRequiresWebhookSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("EMAIL_WEBHOOK_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("production without a webhook secret must refuse to start")
	}

	t.Setenv("EMAIL_WEBHOOK_SECRET", "whsec_dGVzdA==")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production posture")
	}
}
