package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Booking lifecycle.
	PaymentWindowMin int `mapstructure:"PAYMENT_WINDOW_MIN"` // Minutes a Confirmed booking waits for payment
	ExpirySweepSec   int `mapstructure:"EXPIRY_SWEEP_SEC"`   // Background sweep interval

	// VNPay gateway.
	VNPayTmnCode    string `mapstructure:"VNPAY_TMN_CODE"`
	VNPayHashSecret string `mapstructure:"VNPAY_HASH_SECRET"`
	VNPayPayURL     string `mapstructure:"VNPAY_PAY_URL"`
	VNPayReturnURL  string `mapstructure:"VNPAY_RETURN_URL"`

	// Momo gateway.
	MomoPartnerCode string `mapstructure:"MOMO_PARTNER_CODE"`
	MomoAccessKey   string `mapstructure:"MOMO_ACCESS_KEY"`
	MomoSecretKey   string `mapstructure:"MOMO_SECRET_KEY"`
	MomoEndpoint    string `mapstructure:"MOMO_ENDPOINT"`
	MomoRedirectURL string `mapstructure:"MOMO_REDIRECT_URL"`
	MomoIPNURL      string `mapstructure:"MOMO_IPN_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "tourbook")
	viper.SetDefault("PAYMENT_WINDOW_MIN", 10)
	viper.SetDefault("EXPIRY_SWEEP_SEC", 5)
	viper.SetDefault("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	viper.SetDefault("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// PaymentWindow returns the configured hold duration for unpaid bookings.
func PaymentWindow() time.Duration {
	return time.Duration(AppConfig.PaymentWindowMin) * time.Minute
}

// ExpirySweepInterval returns how often the background sweep runs.
func ExpirySweepInterval() time.Duration {
	return time.Duration(AppConfig.ExpirySweepSec) * time.Second
}
