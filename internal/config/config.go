package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the process settings read from the environment.
type Config struct {
	Env         string
	ServerPort  string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	RedisURL    string
	JWTSecret   string
	JWTIssuer   string
	FrontendURL []string
}

var defaults = map[string]string{
	"ENV":          "dev",
	"SERVER_PORT":  "8080",
	"DB_HOST":      "localhost",
	"DB_PORT":      "5432",
	"DB_USER":      "user",
	"DB_PASSWORD":  "password",
	"DB_NAME":      "dmsyncdb",
	"REDIS_URL":    "redis://localhost:6379/0",
	"JWT_SECRET":   "dev-secret-change-me",
	"JWT_ISSUER":   "dmsync-service",
	"FRONTEND_URL": "http://localhost:3000,http://127.0.0.1:3000",
}

// Load reads an optional .env file and then the process environment.
// It reports whether the .env file was found.
func Load() (Config, bool) {
	envLoaded := godotenv.Load() == nil

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return fromViper(v), envLoaded
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Env:         v.GetString("ENV"),
		ServerPort:  v.GetString("SERVER_PORT"),
		DBHost:      v.GetString("DB_HOST"),
		DBPort:      v.GetString("DB_PORT"),
		DBUser:      v.GetString("DB_USER"),
		DBPassword:  v.GetString("DB_PASSWORD"),
		DBName:      v.GetString("DB_NAME"),
		RedisURL:    v.GetString("REDIS_URL"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		JWTIssuer:   v.GetString("JWT_ISSUER"),
		FrontendURL: splitList(v.GetString("FRONTEND_URL")),
	}
}

// PostgresDSN builds the gorm postgres DSN.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
