package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"treasury/internal/models"
)

// Config holds application configuration
type Config struct {
	Env string

	// Server
	Port               string
	CORSAllowedOrigins []string
	RateLimit          string

	// Database
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	MigrationsPath string

	// JWT
	JWTSecret        string
	JWTIssuer        string
	JWTExpirationDur time.Duration

	// ImporterAPIKeyHash is the bcrypt hash of the key the report importer
	// presents in X-API-Key. Empty disables the import endpoint.
	ImporterAPIKeyHash string

	// RoleScopeOverrides replaces the default scope of every permission a
	// role holds, e.g. {"treasurer": "all"}.
	RoleScopeOverrides map[models.Role]models.Scope
}

var appConfig *Config

// Load loads configuration from the .env file and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "treasury")
	v.SetDefault("DB_PASSWORD", "treasury")
	v.SetDefault("DB_NAME", "treasury")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("JWT_SECRET", "fallback-secret-key-for-dev-only")
	v.SetDefault("JWT_ISSUER", "treasury-api")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("IMPORTER_API_KEY_HASH", "")
	v.SetDefault("ROLE_SCOPE_OVERRIDES", "treasurer=all")
	v.AutomaticEnv()

	config := &Config{
		Env:                v.GetString("ENV"),
		Port:               v.GetString("PORT"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimit:          v.GetString("RATE_LIMIT"),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             v.GetString("DB_PORT"),
		DBUser:             v.GetString("DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBName:             v.GetString("DB_NAME"),
		DBSSLMode:          v.GetString("DB_SSLMODE"),
		MigrationsPath:     v.GetString("MIGRATIONS_PATH"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		ImporterAPIKeyHash: v.GetString("IMPORTER_API_KEY_HASH"),
	}

	expStr := v.GetString("JWT_EXPIRES_IN")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	overrides, err := ParseRoleScopeOverrides(v.GetString("ROLE_SCOPE_OVERRIDES"))
	if err != nil {
		return nil, err
	}
	config.RoleScopeOverrides = overrides

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// DSN returns the PostgreSQL connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MigrateURL returns the postgres:// URL golang-migrate expects.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// ParseRoleScopeOverrides parses "role=scope,role=scope".
func ParseRoleScopeOverrides(raw string) (map[models.Role]models.Scope, error) {
	overrides := make(map[models.Role]models.Scope)
	for _, pair := range splitList(raw) {
		role, scope, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid ROLE_SCOPE_OVERRIDES entry %q: want role=scope", pair)
		}
		r := models.Role(strings.TrimSpace(role))
		s := models.Scope(strings.TrimSpace(scope))
		if !r.IsValid() {
			return nil, fmt.Errorf("invalid ROLE_SCOPE_OVERRIDES role %q", role)
		}
		if !s.IsValid() {
			return nil, fmt.Errorf("invalid ROLE_SCOPE_OVERRIDES scope %q for role %q", scope, role)
		}
		overrides[r] = s
	}
	return overrides, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
