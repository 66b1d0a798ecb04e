// Command server runs the matching engine behind the TCP transport
// collaborator.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flag"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/money"
	"matchcore/internal/transport"
)

func parseConfigDecimal(s string, scale int32) (money.Decimal, error) {
	return money.Parse(s, scale)
}

func main() {
	address := flag.String("address", "0.0.0.0", "listen address")
	port := flag.Int("port", 9001, "listen port")
	minQty := flag.String("min-qty", "0.00000001", "minimum accepted order quantity")
	maxQty := flag.String("max-qty", "1000000000", "maximum accepted order quantity")
	minPrice := flag.String("min-price", "0.00000001", "minimum accepted order price")
	maxPrice := flag.String("max-price", "1000000000", "maximum accepted order price")
	depth := flag.Int("default-depth", 10, "default depth-query size")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := engine.DefaultConfig()
	cfg.DefaultDepth = *depth
	if v, err := parseConfigDecimal(*minQty, cfg.DecimalScale); err == nil {
		cfg.MinQuantity = v
	}
	if v, err := parseConfigDecimal(*maxQty, cfg.DecimalScale); err == nil {
		cfg.MaxQuantity = v
	}
	if v, err := parseConfigDecimal(*minPrice, cfg.DecimalScale); err == nil {
		cfg.MinPrice = v
	}
	if v, err := parseConfigDecimal(*maxPrice, cfg.DecimalScale); err == nil {
		cfg.MaxPrice = v
	}

	eng := engine.New(cfg)
	eng.OnTrade(func(t common.Trade) {
		log.Info().
			Str("symbol", t.Symbol).
			Str("price", t.Price.String()).
			Str("qty", t.Quantity.String()).
			Msg("trade")
	})

	srv := transport.New(*address, *port, eng)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("transport server exited")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	srv.Shutdown()
}
