package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/trailing_stop/internal/config"
	"github.com/vitos/trailing_stop/internal/infrastructure/exchange"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	symbol := cfg.Trailing.Symbol
	fmt.Printf("Testing Binance Interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Exchange.RESTEndpoint)
	fmt.Printf("Testnet: %v\n", cfg.Exchange.Testnet)
	fmt.Printf("API Key: %s...\n", mask(cfg.Exchange.APIKey))

	adapter := exchange.NewBinanceAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.WSEndpoint,
		cfg.Exchange.Testnet,
		zap.NewNop(),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	failed := false

	// 2. Check Public Endpoint (Exchange Info)
	precision, err := adapter.PricePrecision(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price precision: %v\n", err)
		failed = true
	} else {
		fmt.Printf("✅ Price precision (%s): %d decimals (configured: %d)\n", symbol, precision, cfg.Precision())
	}

	// 3. Check Signed Endpoint (Open Orders)
	orders, err := adapter.ListOpenOrders(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ Failed to list open orders: %v\n", err)
		failed = true
	} else {
		fmt.Printf("✅ Open orders (%s): %d\n", symbol, len(orders))
		for _, o := range orders {
			fmt.Printf("   #%d %s %s qty=%s limit=%s stop=%s spread=%s\n",
				o.OrderID, o.Side, o.Type, o.OrigQty, o.Price, o.StopPrice, o.Spread())
		}
	}

	if failed {
		os.Exit(1)
	}
}

func mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4]
}
