package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"fasttrade/config"
	"fasttrade/internal/conversation"
	"fasttrade/internal/exchange"
	"fasttrade/internal/executor"
	"fasttrade/internal/telegram"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("🚀 Starting fasttrade bot...")

	cfg := config.Load()

	gateway := exchange.NewSpotClient(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.UseTestnet)
	tradeExecutor := executor.New(gateway)
	machine := conversation.NewMachine(gateway, cfg.QuoteCurrency, cfg.DefaultPercent)

	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.AuthorizedUserID, machine, tradeExecutor, gateway, cfg.QuoteCurrency)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	go bot.Start()
	log.Println("✅ Bot is ready, waiting for the operator")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down...")
	bot.Stop()
}
