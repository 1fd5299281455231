package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"fasttrade/internal/models"
)

type Config struct {
	TelegramToken    string
	BinanceAPIKey    string
	BinanceSecretKey string
	AuthorizedUserID int64
	UseTestnet       bool
	QuoteCurrency    string
	DefaultPercent   float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	userID, err := strconv.ParseInt(os.Getenv("AUTHORIZED_USER_ID"), 10, 64)
	if err != nil {
		log.Fatal("Invalid AUTHORIZED_USER_ID")
	}

	testnet := false
	if v := os.Getenv("BINANCE_TESTNET"); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			testnet = val
		}
	}

	currency := os.Getenv("QUOTE_CURRENCY")
	if currency == "" {
		currency = models.DefaultCurrency
	}

	percent := models.DefaultPercentChange
	if p := os.Getenv("DEFAULT_PERCENT_CHANGE"); p != "" {
		if val, err := strconv.ParseFloat(p, 64); err == nil {
			percent = val
		}
	}

	return &Config{
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		AuthorizedUserID: userID,
		UseTestnet:       testnet,
		QuoteCurrency:    currency,
		DefaultPercent:   percent,
	}
}
