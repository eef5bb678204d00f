package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int
	AllowedOrigins []string
	MigrateOnStart bool

	RedisAddr       string
	RedisDB         int
	EventsQueueName string

	R2 *R2Config
}

// R2Config is set only when every R2_* variable is present.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

var ErrPartialR2Config = errors.New("R2 storage is partially configured")

// Load reads the configuration, first loading a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	migrate := false
	if v := os.Getenv("MIGRATE_ON_START"); v != "" {
		migrate, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MIGRATE_ON_START environment variable: %w", err)
		}
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		redisDB, err = strconv.Atoi(v)
		if err != nil || redisDB < 0 {
			return nil, fmt.Errorf("invalid REDIS_DB environment variable %q", v)
		}
	}

	r2, err := loadR2()
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:     dbURL,
		JWTSecretKey:    jwtKey,
		ServerPort:      port,
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
		MigrateOnStart:  migrate,
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisDB:         redisDB,
		EventsQueueName: os.Getenv("EVENTS_QUEUE_NAME"),
		R2:              r2,
	}, nil
}

func loadR2() (*R2Config, error) {
	cfg := R2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("R2_BUCKET_NAME"),
		PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	values := map[string]string{
		"R2_ACCOUNT_ID":        cfg.AccountID,
		"R2_ACCESS_KEY_ID":     cfg.AccessKeyID,
		"R2_SECRET_ACCESS_KEY": cfg.SecretAccessKey,
		"R2_BUCKET_NAME":       cfg.BucketName,
		"R2_PUBLIC_BASE_URL":   cfg.PublicBaseURL,
	}

	var missing []string
	for name, v := range values {
		if v == "" {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	switch len(missing) {
	case 0:
		return &cfg, nil
	case len(values):
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: missing %s", ErrPartialR2Config, strings.Join(missing, ", "))
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
