package config

import "testing"

func TestLoadRequiresJWTSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without JWT_SECRET in production")
	}
}

func TestLoadFallsBackToDevSecret(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Errorf("appEnv = %q, want development", cfg.AppEnv)
	}
	if cfg.JWTSecret == "" {
		t.Error("development boot should carry a non-empty fallback secret")
	}
}

func TestLoadKeepsExplicitSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "configured-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "configured-secret" {
		t.Errorf("jwtSecret = %q, want the configured value", cfg.JWTSecret)
	}
}
