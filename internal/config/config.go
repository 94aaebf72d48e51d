package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	PostgresURL string
	LogLevel    string
	JWTSecret   string

	AppName    string
	AppBaseURL string
	AdminEmail string // receives service gift card notices; empty disables them
	NotifyTimeout time.Duration // per email send

	Stripe StripeConfig
	SMTP   SMTPSettings
	Ledger LedgerConfig
	Cards  GiftCardConfig

	ExpireSweepSchedule string
	RedeemRatePerMinute int
	VerifyRatePerMinute int
	TrustedProxies      []string // client IPs come from X-Forwarded-For only behind these
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBase       string        // optional, points the client at a local Stripe twin
	Timeout       time.Duration // per gateway call
}

type SMTPSettings struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	UseSSL     bool
	RequireTLS bool
}

type LedgerConfig struct {
	Currency string // ISO 4217, lower case as Stripe reports it
}

type GiftCardConfig struct {
	ValidityMonths          int
	MaxRedemptionAttempts   int
	MaxVerificationAttempts int
	LookupRetentionMonths   int
	ScanWarnThreshold       int
	BcryptCost              int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_NAME", "Salon")
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")

	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("LEDGER_CURRENCY", "usd")

	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587) // 587 for STARTTLS; use 465 with SMTP_USE_SSL=true
	v.SetDefault("SMTP_USE_SSL", false)
	v.SetDefault("SMTP_REQUIRE_TLS", true)

	v.SetDefault("GIFTCARD_VALIDITY_MONTHS", 6)
	v.SetDefault("GIFTCARD_MAX_REDEMPTION_ATTEMPTS", 5)
	v.SetDefault("GIFTCARD_MAX_VERIFICATION_ATTEMPTS", 10)
	v.SetDefault("GIFTCARD_LOOKUP_RETENTION_MONTHS", 13)
	v.SetDefault("GIFTCARD_SCAN_WARN_THRESHOLD", 5000)
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("EXPIRE_SWEEP_SCHEDULE", "@hourly")
	v.SetDefault("REDEEM_RATE_PER_MINUTE", 10)
	v.SetDefault("VERIFY_RATE_PER_MINUTE", 10)
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:          v.GetString("PORT"),
		PostgresURL:   v.GetString("POSTGRES_URL"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		AppName:       v.GetString("APP_NAME"),
		AppBaseURL:    v.GetString("APP_BASE_URL"),
		AdminEmail:    v.GetString("NOTIFY_ADMIN_EMAIL"),
		NotifyTimeout: v.GetDuration("NOTIFY_TIMEOUT"),
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			APIBase:       v.GetString("STRIPE_API_BASE"),
			Timeout:       v.GetDuration("PAYMENT_TIMEOUT"),
		},
		SMTP: SMTPSettings{
			Host:       v.GetString("SMTP_HOST"),
			Port:       v.GetInt("SMTP_PORT"),
			Username:   v.GetString("SMTP_USERNAME"),
			Password:   v.GetString("SMTP_PASSWORD"),
			From:       v.GetString("SMTP_FROM"),
			FromName:   v.GetString("SMTP_FROM_NAME"),
			UseSSL:     v.GetBool("SMTP_USE_SSL"),
			RequireTLS: v.GetBool("SMTP_REQUIRE_TLS"),
		},
		Ledger: LedgerConfig{
			Currency: strings.ToLower(v.GetString("LEDGER_CURRENCY")),
		},
		Cards: GiftCardConfig{
			ValidityMonths:          v.GetInt("GIFTCARD_VALIDITY_MONTHS"),
			MaxRedemptionAttempts:   v.GetInt("GIFTCARD_MAX_REDEMPTION_ATTEMPTS"),
			MaxVerificationAttempts: v.GetInt("GIFTCARD_MAX_VERIFICATION_ATTEMPTS"),
			LookupRetentionMonths:   v.GetInt("GIFTCARD_LOOKUP_RETENTION_MONTHS"),
			ScanWarnThreshold:       v.GetInt("GIFTCARD_SCAN_WARN_THRESHOLD"),
			BcryptCost:              v.GetInt("BCRYPT_COST"),
		},
		ExpireSweepSchedule: v.GetString("EXPIRE_SWEEP_SCHEDULE"),
		RedeemRatePerMinute: v.GetInt("REDEEM_RATE_PER_MINUTE"),
		VerifyRatePerMinute: v.GetInt("VERIFY_RATE_PER_MINUTE"),
		TrustedProxies:      v.GetStringSlice("TRUSTED_PROXIES"),
	}
}
