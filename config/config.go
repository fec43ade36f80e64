package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LiqPay holds the payment gateway credentials and callback URLs.
type LiqPay struct {
	PublicKey   string
	PrivateKey  string
	CheckoutURL string
	ResultURL   string
	ServerURL   string
	Sandbox     bool
}

// NovaPoshta holds the carrier API settings used by address lookup.
type NovaPoshta struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

// SMTP holds outgoing mail settings. An empty Host switches the mailer to log-only mode.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Config struct {
	Port          string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JWTSecret     string
	UploadDir     string
	PublicBaseURL string
	CORSOrigins   []string
	SessionTTL    time.Duration
	MaxMailTries  int

	LiqPay     LiqPay
	NovaPoshta NovaPoshta
	SMTP       SMTP
}

var ErrMissing = errors.New("missing required setting")

// Load reads configuration from the environment, loading .env first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: could not read .env: %v", err)
	}

	cfg := Config{
		Port:          port(getEnv("PORT", "8080")),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:       getEnv("MONGO_DB", "storefront"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		UploadDir:     getEnv("UPLOAD_DIR", "./static/uploads"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		CORSOrigins:   getList("CORS_ORIGINS", "*"),
		LiqPay: LiqPay{
			PublicKey:   os.Getenv("LIQPAY_PUBLIC_KEY"),
			PrivateKey:  os.Getenv("LIQPAY_PRIVATE_KEY"),
			CheckoutURL: getEnv("LIQPAY_CHECKOUT_URL", "https://www.liqpay.ua/api/3/checkout"),
			ResultURL:   os.Getenv("LIQPAY_RESULT_URL"),
			ServerURL:   os.Getenv("LIQPAY_SERVER_URL"),
		},
		NovaPoshta: NovaPoshta{
			APIKey:  os.Getenv("NOVAPOSHTA_API_KEY"),
			BaseURL: getEnv("NOVAPOSHTA_BASE_URL", "https://api.novaposhta.ua/v2.0/json/"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", "shop@localhost"),
		},
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", 587); err != nil {
		return cfg, err
	}
	if cfg.MaxMailTries, err = getInt("MAIL_MAX_ATTEMPTS", 5); err != nil {
		return cfg, err
	}
	if cfg.SessionTTL, err = getDuration("PAYMENT_SESSION_TTL", 30*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.NovaPoshta.CacheTTL, err = getDuration("ADDRESS_CACHE_TTL", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.LiqPay.Sandbox, err = getBool("LIQPAY_SANDBOX", false); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return fmt.Errorf("%w: JWT_SECRET", ErrMissing)
	case c.LiqPay.PublicKey == "":
		return fmt.Errorf("%w: LIQPAY_PUBLIC_KEY", ErrMissing)
	case c.LiqPay.PrivateKey == "":
		return fmt.Errorf("%w: LIQPAY_PRIVATE_KEY", ErrMissing)
	}
	return nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getList(k, d string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(k, d), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return n, nil
}

func getBool(k string, d bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", k, err)
	}
	return b, nil
}

func getDuration(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return dur, nil
}

func port(p string) string {
	if p != "" && p[0] != ':' {
		return ":" + p
	}
	return p
}
