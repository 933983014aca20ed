package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mcastelect/internal/config"
	"mcastelect/internal/ifmon"
	"mcastelect/internal/mcast"
	"mcastelect/internal/notify"
	"mcastelect/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcastd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/mcastd.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log_level: %w", err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	clk := clock.New()
	st := store.NewMemStore(store.NodeID(cfg.NodeID))
	mon := ifmon.NewSystemMonitor(clk, cfg.PollInterval, cfg.ExternalInterfaces, log)
	mon.Start()
	defer mon.Stop()

	reg := prometheus.NewRegistry()
	mod, err := mcast.Attach(mcast.Options{
		Store:      st,
		Monitor:    mon,
		Notifier:   notify.NewScript(cfg.Script, log),
		Clock:      clk,
		Logger:     log,
		BPDebounce: cfg.BPDebounce,
		RPDebounce: cfg.RPDebounce,
		Registry:   reg,
	})
	if err != nil {
		return err
	}
	defer mod.Close()

	// Hold an external-connection attribute while any configured
	// uplink interface is usable; the module's border proxy logic
	// keys off its presence.
	var uplinkMu sync.Mutex
	uplink := false
	syncUplink := func() {
		uplinkMu.Lock()
		defer uplinkMu.Unlock()
		want := mon.ExternalUp()
		if want == uplink {
			return
		}
		uplink = want
		if want {
			log.Info().Msg("external uplink present")
			st.AddOwnAttribute(store.KindExternalConnection, nil)
		} else {
			log.Info().Msg("external uplink lost")
			st.RemoveOwnAttributesOfKind(store.KindExternalConnection)
		}
	}
	cancelUplink := mon.Subscribe(func(ifmon.Event) { syncUplink() })
	defer cancelUplink()
	syncUplink()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	log.Info().Str("node", cfg.NodeID).Msg("mcastd attached")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("shutting down")
	return nil
}
