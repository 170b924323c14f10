package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndemidenko/pressroom/internal/models"
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	JWT_SECRET string
	TokenTTL   time.Duration
	BcryptCost int

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	KAFKA_ADDRESS string
	LOG_LEVEL     string

	// Seed data applied by db.Init. Role names are ordered from the
	// highest privilege to the lowest; ids are assigned in that order
	// starting from 1.
	SeedRoles      []string
	SeedCategories []string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		JWT_SECRET: os.Getenv("JWT_SECRET"),
		TokenTTL:   time.Duration(intEnv("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		BcryptCost: intEnv("BCRYPT_COST", bcrypt.DefaultCost),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),
		LOG_LEVEL:     os.Getenv("LOG_LEVEL"),

		SeedRoles:      models.RoleHierarchy(),
		SeedCategories: listEnv("SEED_CATEGORIES", []string{"General"}),
	}

	return config, nil
}

func intEnv(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using default %d", key, s, def)
		return def
	}
	return v
}

func listEnv(key string, def []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
