package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Loyalty: one point per PointsDivisor currency units spent, tiers from
	// ascending point thresholds (BRONZE is the floor).
	PointsDivisor int
	TierSilverMin int
	TierGoldMin   int
	TierVIPMin    int
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=restochain port=5432 sslmode=disable"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		PointsDivisor: getEnvInt("LOYALTY_POINTS_DIVISOR", 10000),
		TierSilverMin: getEnvInt("LOYALTY_TIER_SILVER_MIN", 100),
		TierGoldMin:   getEnvInt("LOYALTY_TIER_GOLD_MIN", 500),
		TierVIPMin:    getEnvInt("LOYALTY_TIER_VIP_MIN", 1500),
	}

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set; refusing to start")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal().Msg("JWT_SECRET must be at least 32 characters")
	}
	if cfg.PointsDivisor <= 0 {
		log.Fatal().Int("divisor", cfg.PointsDivisor).Msg("LOYALTY_POINTS_DIVISOR must be positive")
	}
	if !(cfg.TierSilverMin < cfg.TierGoldMin && cfg.TierGoldMin < cfg.TierVIPMin) {
		log.Fatal().Msg("loyalty tier thresholds must be strictly ascending")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer env value, using default")
		return def
	}
	return n
}
