package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetlink/cantel/collector"
	"github.com/fleetlink/cantel/config"
	"github.com/fleetlink/cantel/internal"
	"github.com/fleetlink/cantel/mapping"
)

func main() {
	cfgPath := flag.String("config", "cantel.yml", "path to the config file")
	withOtel := flag.Bool("otel", false, "export metrics and traces over OTLP")
	flag.Parse()

	if err := run(*cfgPath, *withOtel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string, withOtel bool) error {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancelCtx()

	if withOtel {
		if err := internal.InitOtel(ctx, "cantel"); err != nil {
			return err
		}
		defer internal.CloseOtel(context.Background())
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	model, err := mapping.Load(cfg.MappingPath)
	if err != nil {
		return err
	}

	snk, err := cfg.BuildSink()
	if err != nil {
		return err
	}
	defer snk.Close()

	coll := collector.New(cfg.CollectorConfig(), model, cfg.Source(), snk)
	if err := coll.Start(ctx); err != nil {
		return err
	}
	defer coll.Stop()

	<-ctx.Done()

	return nil
}
