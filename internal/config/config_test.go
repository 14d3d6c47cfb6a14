package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRejectsFakeProvider(t *testing.T) {
	c := Config{
		App: AppConfig{Env: "production", Port: 8080},
		IdP: IdPConfig{Provider: ProviderFake, FakeSecret: "s"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for fake provider in production")
	}
}

func TestValidate_CognitoRequiresClientID(t *testing.T) {
	c := Config{
		App: AppConfig{Env: "dev", Port: 8080},
		IdP: IdPConfig{Provider: ProviderCognito, CognitoRegion: "eu-west-1"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing COGNITO_CLIENT_ID")
	}
}

func TestValidate_CookieDefaults(t *testing.T) {
	c := Config{
		App: AppConfig{Env: "local", Port: 8080},
		IdP: IdPConfig{Provider: ProviderFake, FakeSecret: "s"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Cookie.Name != "refresh_token" || c.Cookie.Path != "/api/auth" {
		t.Fatalf("unexpected cookie defaults: %+v", c.Cookie)
	}
	if c.Cookie.MaxAge != 30*24*time.Hour {
		t.Fatalf("expected 30 day max age, got %v", c.Cookie.MaxAge)
	}
	if c.Cookie.Secure {
		t.Fatalf("cookie must not be secure outside production")
	}
	if c.MFA.MaxVerifyAttempts != 5 {
		t.Fatalf("expected default attempt cap 5, got %d", c.MFA.MaxVerifyAttempts)
	}
}

func TestValidate_ProductionCookieIsSecure(t *testing.T) {
	c := Config{
		App: AppConfig{Env: "production", Port: 8080},
		IdP: IdPConfig{Provider: ProviderCognito, CognitoRegion: "eu-west-1", CognitoClientID: "abc"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !c.Cookie.Secure {
		t.Fatalf("expected secure cookie in production")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := Config{
		App: AppConfig{Env: "local", Port: 8080},
		DB:  DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "dashboard"},
		IdP: IdPConfig{Provider: ProviderFake, FakeSecret: "s"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}
