package main

import (
	"os"
	"strconv"
	"strings"
)

// AppConfig is the env-driven runtime configuration.
type AppConfig struct {
	HTTPAddr        string
	DSN             string
	SigningKey      string
	TokenExpiration int
	Issuer          string
	Audience        []string
	ContextKey      string
	AuthScheme      string
	ClientOrigin    string
	Production      bool
	StaticDir       string
}

func LoadConfig() *AppConfig {
	return &AppConfig{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		DSN:             envOr("DSN", "file:bandmate.db?cache=shared&mode=rwc"),
		SigningKey:      envOr("SIGNING_KEY", "development-signing-key"),
		TokenExpiration: envIntOr("TOKEN_EXPIRATION_HOURS", 72),
		Issuer:          envOr("TOKEN_ISSUER", "bandmate"),
		Audience:        envListOr("TOKEN_AUDIENCE", nil),
		ContextKey:      envOr("AUTH_CONTEXT_KEY", "user"),
		AuthScheme:      envOr("AUTH_SCHEME", "Bearer"),
		ClientOrigin:    envOr("CLIENT_ORIGIN", ""),
		Production:      envOr("APP_ENV", "development") == "production",
		StaticDir:       envOr("STATIC_DIR", "./web/dist"),
	}
}

func (c *AppConfig) GetSigningKey() string   { return c.SigningKey }
func (c *AppConfig) GetTokenExpiration() int { return c.TokenExpiration }
func (c *AppConfig) GetIssuer() string       { return c.Issuer }
func (c *AppConfig) GetAudience() []string   { return c.Audience }
func (c *AppConfig) GetContextKey() string   { return c.ContextKey }
func (c *AppConfig) GetAuthScheme() string   { return c.AuthScheme }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
