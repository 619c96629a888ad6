package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN      string
	RedisURL      string
	JWTSecret     string
	Port          string
	SweepInterval int // seconds; <= 0 disables the auto-advance sweeper
	AdminEmail    string
	AdminPassword string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	si, _ := strconv.Atoi(getenv("SWEEP_INTERVAL", "30"))
	return Config{
		MySQLDSN:      getenv("MYSQL_DSN", "sociocrates:sociocrates@tcp(127.0.0.1:3306)/sociocrates?parseTime=true"),
		RedisURL:      getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret-change-this-in-production"),
		Port:          getenv("PORT", "8080"),
		SweepInterval: si,
		AdminEmail:    getenv("ADMIN_EMAIL", "admin@sociocracy.org"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"), // empty skips the admin seed
	}
}
