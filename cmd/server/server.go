package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"

	"sleipnir/internal/engine"
	"sleipnir/internal/feed"
	"sleipnir/internal/journal"
	"sleipnir/internal/net"

	"github.com/rs/zerolog/log"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Listen address")
	port := flag.Int("port", 9001, "Listen port")
	journalDir := flag.String("journal", "", "Trade journal directory (journaling disabled when empty)")
	brokers := flag.String("brokers", "", "Comma-separated kafka brokers for the trade feed (feed disabled when empty)")
	topic := flag.String("topic", "trades", "Kafka topic for the trade feed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the matching engine and the TCP server around it.
	book := engine.NewOrderbook()
	defer func() {
		if err := book.Close(); err != nil {
			log.Error().Err(err).Msg("engine shutdown")
		}
	}()

	srv := net.New(*address, *port, book)

	if *journalDir != "" {
		j, err := journal.Open(*journalDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", *journalDir).Msg("unable to open trade journal")
		}
		defer func() {
			if err := j.Close(); err != nil {
				log.Error().Err(err).Msg("journal shutdown")
			}
		}()
		srv.AddSink(j)
	}

	if *brokers != "" {
		publisher := feed.New(strings.Split(*brokers, ","), *topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("feed shutdown")
			}
		}()
		srv.AddSink(publisher)
	}

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}
